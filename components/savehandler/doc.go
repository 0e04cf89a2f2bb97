// Package savehandler provides a small net/http handler for the inline save
// endpoint. It decodes posted edits (form fields named fields[recordId__field]
// or a JSON body with a "fields" object), hands them to a Saver and writes
// the JSON result.
//
// The handler only accepts POST. Once a request has been decoded the response
// is always 200; the logical outcome is carried by the "status" member of the
// payload.
package savehandler
