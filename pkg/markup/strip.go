package markup

// stripTags replaces tag markers with their inner markup until none are
// left, which also unwraps nested markers.
func (s *Scanner) stripTags(markup string) string {
	for {
		next := s.pairRe.ReplaceAllString(markup, "$1")
		if next == markup {
			return next
		}
		markup = next
	}
}

// stripAttributes removes the marker attribute from every element.
func (s *Scanner) stripAttributes(markup string) string {
	for {
		next := s.rewriteStartTags(markup, func(string, bool) string { return "" })
		if next == markup {
			return next
		}
		markup = next
	}
}

// Strip removes both marker syntaxes from markup using the default marker
// names, or the names configured through opts.
func Strip(markup string, opts ...Option) string {
	return NewScanner(nil, opts...).Strip(markup)
}
