package gemini

// promptData represents the data passed to the prompt template
type promptData struct {
	Labels []string
}

// ResponseSchema is the JSON document the model is asked to return.
type ResponseSchema struct {
	Scores []LabelScore `json:"scores"`
}

// LabelScore is the model's score for one candidate label.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
