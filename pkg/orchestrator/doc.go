// Package orchestrator wires the markup scanner, the editor renderer, the
// asset resolver and the save pipeline behind two entry points: Transform,
// called by the request handler once a page has been rendered, and Save,
// called by the save endpoint.
//
// Editing permission is decided once per Transform call. When the actor may
// edit the page record the scanner replaces markers with editors and the
// editor assets are injected before </head>; otherwise every marker is
// stripped and the page is returned without editor markup.
package orchestrator
