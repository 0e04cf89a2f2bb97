// Command frontedit renders, strips and serves pages with in-place editing
// markers.
package main

func main() {
	execute()
}
