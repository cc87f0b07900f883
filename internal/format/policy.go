package format

import "github.com/microcosm-cc/bluemonday"

var svgElements = []string{
	"svg", "g", "defs", "marker", "symbol", "use", "title", "desc",
	"path", "rect", "circle", "ellipse", "line", "polyline", "polygon",
	"text", "tspan", "textpath", "foreignobject", "lineargradient", "stop",
}

var svgAttrs = []string{
	"xmlns", "viewbox", "width", "height", "x", "y", "x1", "y1", "x2", "y2",
	"cx", "cy", "r", "rx", "ry", "d", "points", "transform",
	"fill", "fill-opacity", "stroke", "stroke-width", "stroke-dasharray", "opacity",
	"marker-start", "marker-end", "markerwidth", "markerheight", "markerunits",
	"refx", "refy", "orient", "preserveaspectratio", "offset", "stop-color",
	"text-anchor", "dominant-baseline", "alignment-baseline",
	"font-size", "font-family", "font-weight", "dx", "dy", "role", "aria-roledescription",
}

// Policy returns the sanitizer allow-list for message HTML: user generated
// content plus code highlighting classes, diagram placeholders and SVG
// output. Script elements and event handler attributes are never allowed.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs(diagramSource, "data-diagram-state").OnElements("div")
	p.AllowElements(svgElements...)
	p.AllowAttrs(svgAttrs...).OnElements(svgElements...)
	p.AllowAttrs("id").OnElements(svgElements...)
	return p
}
