package valueobject

// CVESummary is the condensed form of one vulnerability database record.
// Its JSON shape is stable: summaries are embedded in finding details and
// in the tool output fed back to the language model.
type CVESummary struct {
	CVEID        string   `json:"cve_id"`
	Description  string   `json:"description"`
	CVSSScore    float64  `json:"cvss_score"`
	CVSSSeverity string   `json:"cvss_severity"`
	References   []string `json:"references"`
}
