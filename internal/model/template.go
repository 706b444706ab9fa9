package model

// TemplateCategory groups catalog templates by content theme
type TemplateCategory string

const (
	CategoryFitness   TemplateCategory = "fitness"
	CategoryLifestyle TemplateCategory = "lifestyle"
	CategoryGlamour   TemplateCategory = "glamour"
	CategoryArtistic  TemplateCategory = "artistic"
	CategoryWellness  TemplateCategory = "wellness"
	CategoryBeach     TemplateCategory = "beach"
	CategoryUrban     TemplateCategory = "urban"
	CategoryNature    TemplateCategory = "nature"
	CategoryFashion   TemplateCategory = "fashion"
	CategoryIntimate  TemplateCategory = "intimate"
)

// Template is an immutable catalog entry describing one shot setup.
type Template struct {
	ID       string           `json:"id"`
	Category TemplateCategory `json:"category"`
	Tier     Tier             `json:"tier"`
	Prompt   string           `json:"prompt"`
	Pose     string           `json:"pose"`
	Lighting string           `json:"lighting"`
	Angle    string           `json:"angle"`
	Tags     []string         `json:"tags"`
}

// FullPrompt combines the template fields into the prompt sent to the
// generation provider.
func (t Template) FullPrompt() string {
	prompt := t.Prompt
	if t.Lighting != "" {
		prompt += ", " + t.Lighting
	}
	if t.Angle != "" {
		prompt += ", " + t.Angle
	}
	if t.Pose != "" {
		prompt += ", " + t.Pose
	}
	return prompt
}
