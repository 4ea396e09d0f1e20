// Package analysisdto defines the JSON contract of the position-analysis
// endpoint shared by the analysisd server and the remote backend client.
package analysisdto

type AnalyzeRequest struct {
	FEN        string `json:"fen"`
	Depth      int    `json:"depth"`
	MultiPV    int    `json:"multiPv,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type AnalyzeResponse struct {
	Score    *int       `json:"score,omitempty"`
	Mate     *int       `json:"mate,omitempty"`
	BestMove string     `json:"bestMove,omitempty"`
	Lines    [][]string `json:"lines,omitempty"`
	Depth    int        `json:"depth"`
	FEN      string     `json:"fen"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
