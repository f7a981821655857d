package models

// Charts bundles the chart specifications rendered next to a prediction.
type Charts struct {
	Gauge       Gauge    `json:"gauge"`
	Models      BarChart `json:"models"`
	Percentiles BarChart `json:"percentiles"`
}

// Gauge is a 0-100 dial with coloured bands.
type Gauge struct {
	Title string      `json:"title"`
	Value float64     `json:"value"`
	Color string      `json:"color"`
	Steps []GaugeStep `json:"steps"`
}

// GaugeStep is one coloured range of a gauge.
type GaugeStep struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

// BarChart is a horizontal bar chart.
type BarChart struct {
	Title  string    `json:"title"`
	XTitle string    `json:"x_title"`
	YTitle string    `json:"y_title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Text   []string  `json:"text"`
}
