package handler

import (
	"encoding/json"
	"strings"

	"ai-teacher/internal/app"
	"ai-teacher/internal/prompt"
)

// interestList accepts either a JSON list or a comma separated string.
type interestList []string

func (l *interestList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '،' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

type UserInfoRequest struct {
	ExplanationComplexity float64      `json:"explanation_complexity"`
	TeachingStyle         string       `json:"teaching_style"`
	Occupation            string       `json:"occupation"`
	LearningGoal          string       `json:"learning_goal"`
	LearningStyle         string       `json:"learning_style"`
	Interests             interestList `json:"interests"`
}

func (r UserInfoRequest) toApp() app.UserInfo {
	return app.UserInfo{
		ExplanationComplexity: r.ExplanationComplexity,
		TeachingStyle:         r.TeachingStyle,
		Occupation:            r.Occupation,
		LearningGoal:          r.LearningGoal,
		LearningStyle:         r.LearningStyle,
		Interests:             []string(r.Interests),
	}
}

type GenerationRequest struct {
	ChatHistory []prompt.Turn   `json:"chat_history" binding:"required,min=1"`
	UserInfo    UserInfoRequest `json:"user_info"`
}

type ImageRequest struct {
	Prompt   string          `json:"prompt" binding:"required"`
	UserInfo UserInfoRequest `json:"user_info"`
}

type SynthesizeRequest struct {
	Text string `json:"text"`
}
