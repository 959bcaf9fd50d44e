package remote

// Request payloads, one per queued action type. Shapes match what the
// fitness API expects; optional fields are omitted when zero.

type WorkoutPayload struct {
	WorkoutType string `json:"workout_type"`
	Exercises   string `json:"exercises,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
}

type CaloriesPayload struct {
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein,omitempty"`
	Carbs      float64 `json:"carbs,omitempty"`
	Fat        float64 `json:"fat,omitempty"`
	MealName   string  `json:"meal_name,omitempty"`
	Visibility string  `json:"visibility,omitempty"`
}

// IntentPayload carries a daily training intent. The remote endpoint has
// upsert semantics, so re-submitting the same day overwrites rather than
// conflicts.
type IntentPayload struct {
	TrainingPattern *string  `json:"training_pattern,omitempty"`
	Emphasis        []string `json:"emphasis"`
	SessionLabel    *string  `json:"session_label,omitempty"`
	Visibility      string   `json:"visibility,omitempty"`
	Note            string   `json:"note,omitempty"`
}

type PostPayload struct {
	Content    string `json:"content"`
	Visibility string `json:"visibility"`
}

type CommentPayload struct {
	PostID  string `json:"postId"`
	Comment string `json:"comment"`
}
