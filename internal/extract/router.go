package extract

import "sort"

// MIME types the router knows about.
const (
	MIMEPDF        = "application/pdf"
	MIMEDOCX       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDOC        = "application/msword"
	MIMEPPTX       = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEPPT        = "application/vnd.ms-powerpoint"
	MIMEOLEStorage = "application/x-ole-storage"
	MIMEXLSX       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// routes is built once and never written afterwards.
var routes = map[string]Strategy{
	MIMEPDF:        StrategyPDF,
	MIMEDOCX:       StrategyDOCX,
	MIMEDOC:        StrategyDOC,
	MIMEPPTX:       StrategyPPTX,
	MIMEPPT:        StrategyPPT,
	MIMEOLEStorage: StrategyOLE,
	MIMEXLSX:       StrategyXLSX,
}

// Route maps a sniffed MIME type to its extraction strategy by exact match.
// Unknown types route to StrategyUnsupported.
func Route(mime string) Strategy {
	if s, ok := routes[mime]; ok {
		return s
	}
	return StrategyUnsupported
}

// SupportedMIMETypes returns the routable MIME types in sorted order.
func SupportedMIMETypes() []string {
	out := make([]string, 0, len(routes))
	for m := range routes {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
