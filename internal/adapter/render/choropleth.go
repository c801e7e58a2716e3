package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"github.com/couchcryptid/covid-data-tracker/internal/domain"
)

// plotlyScript is the plotly.js bundle the choropleth page loads. Country
// geometry is resolved by plotly from ISO-3 codes.
const plotlyScript = "https://cdn.plot.ly/plotly-2.35.2.min.js"

var choroplethTmpl = template.Must(template.New("choropleth").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.Script}}"></script>
</head>
<body>
<div id="map" style="width:100%;height:90vh"></div>
<script>
const data = {{.Data}};
Plotly.newPlot("map", [{
  type: "choropleth",
  locations: data.locations,
  z: data.z,
  text: data.text,
  hovertemplate: "<b>%{text}</b><br>total_cases=%{z}<extra></extra>",
  colorscale: "Plasma",
  colorbar: {title: {text: "total_cases"}}
}], {
  title: {text: data.title},
  geo: {showframe: false, projection: {type: "natural earth"}}
});
</script>
</body>
</html>
`))

// choroplethData is the JSON payload embedded in the page. Missing case counts
// are null.
type choroplethData struct {
	Title     string     `json:"title"`
	Date      string     `json:"date"`
	Locations []string   `json:"locations"`
	Z         []*float64 `json:"z"`
	Text      []string   `json:"text"`
}

// RenderChoropleth renders the snapshot as a standalone HTML page: regions
// keyed by ISO code, coloured by total cases, labelled by location.
func (r *Renderer) RenderChoropleth(s domain.Snapshot) (domain.Artifact, error) {
	if len(s.Regions) == 0 {
		return domain.Artifact{}, fmt.Errorf("render %s: %w", s.Name, domain.ErrNoData)
	}

	data := choroplethData{
		Title:     s.Title,
		Date:      s.Date.Format(domain.DateLayout),
		Locations: make([]string, len(s.Regions)),
		Z:         make([]*float64, len(s.Regions)),
		Text:      make([]string, len(s.Regions)),
	}
	for i, region := range s.Regions {
		data.Locations[i] = region.ISOCode
		data.Text[i] = region.Location
		if !math.IsNaN(region.TotalCases) && !math.IsInf(region.TotalCases, 0) {
			v := region.TotalCases
			data.Z[i] = &v
		}
	}

	var buf bytes.Buffer
	err := choroplethTmpl.Execute(&buf, struct {
		Title  string
		Script string
		Data   choroplethData
	}{Title: s.Title, Script: plotlyScript, Data: data})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("render %s: %w", s.Name, err)
	}
	return domain.Artifact{
		Name:        s.Name + ".html",
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}
