package openrouter

// Model describes one selectable OpenRouter model.
type Model struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
}

// Available lists the models selectable per analysis run. All of them route
// through OpenRouter using the same API key.
var Available = []Model{
	{
		ID:          "qwen/qwen3-235b-a22b",
		Label:       "Qwen 3 235B",
		Provider:    "Qwen",
		Description: "High-capacity MoE model, strong reasoning and multilingual",
	},
	{
		ID:          "stepfun/step-3.5-flash:free",
		Label:       "Step 3.5 Flash (Free)",
		Provider:    "StepFun",
		Description: "Fast, efficient model from StepFun",
	},
	{
		ID:          "arcee-ai/trinity-large-preview:free",
		Label:       "Trinity Large Preview (Free)",
		Provider:    "Arcee AI",
		Description: "Large preview model from Arcee AI",
	},
	{
		ID:          "upstage/solar-pro-3:free",
		Label:       "Solar Pro 3 (Free)",
		Provider:    "Upstage",
		Description: "Solar Pro 3 from Upstage, strong instruction following",
	},
	{
		ID:          "z-ai/glm-4.7-flash",
		Label:       "GLM-4.7 Flash",
		Provider:    "Z-AI",
		Description: "Fast GLM model from Z-AI / Zhipu",
	},
}

// DefaultModel is used whenever a run does not select a model explicitly.
var DefaultModel = Available[1].ID

// IsKnown reports whether the given model ID is in the registry.
func IsKnown(id string) bool {
	for _, m := range Available {
		if m.ID == id {
			return true
		}
	}
	return false
}
