package llm

import "google.golang.org/genai"

// CardSelection is one card pick inside a construction plan.
type CardSelection struct {
	CardName  string `json:"card_name"`
	Quantity  int    `json:"quantity"`
	Reasoning string `json:"reasoning"`
}

// DeckConstructionPlan is the structured output of the initial build call.
type DeckConstructionPlan struct {
	Strategy       string          `json:"strategy"`
	CardSelections []CardSelection `json:"card_selections"`
}

// RefinementAction is a single ordered edit inside a refinement plan.
// Type is one of add, remove, replace; Replacement is set only for replace.
type RefinementAction struct {
	Type        string `json:"type"`
	CardName    string `json:"card_name"`
	Replacement string `json:"replacement,omitempty"`
	Quantity    int    `json:"quantity"`
	Reasoning   string `json:"reasoning"`
}

// RefinementPlan is the structured output of a refinement call.
type RefinementPlan struct {
	Analysis string             `json:"analysis"`
	Actions  []RefinementAction `json:"actions"`
}

// CardChange names a card with a quantity and the reason for the change.
type CardChange struct {
	CardName string `json:"card_name"`
	Reason   string `json:"reason"`
	Quantity int    `json:"quantity"`
}

// DeckImprovementPlan is the analyzer's structured improvement output.
type DeckImprovementPlan struct {
	Removals  []CardChange `json:"removals"`
	Additions []CardChange `json:"additions"`
	Analysis  string       `json:"analysis"`
}

// Intent types for deck modification requests.
const (
	IntentAdd           = "ADD"
	IntentRemove        = "REMOVE"
	IntentReplace       = "REPLACE"
	IntentOptimize      = "OPTIMIZE"
	IntentStrategyShift = "STRATEGY_SHIFT"
)

// IntentCardChange is a concrete card edit extracted from a user prompt.
type IntentCardChange struct {
	Action      string `json:"action"` // add or remove
	CardName    string `json:"card_name"`
	Replacement string `json:"replacement,omitempty"`
	Quantity    int    `json:"quantity"`
}

// ModificationIntent classifies a free-text modification request.
// Confidence is recorded for observability and never gates execution.
type ModificationIntent struct {
	IntentType  string             `json:"intent_type"`
	Description string             `json:"description"`
	CardChanges []IntentCardChange `json:"card_changes"`
	Constraints []string           `json:"constraints"`
	Confidence  float64            `json:"confidence"`
}

// Response schemas declared up front so the provider can enforce them.

var cardSelectionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"card_name": {Type: genai.TypeString},
		"quantity":  {Type: genai.TypeInteger},
		"reasoning": {Type: genai.TypeString},
	},
	Required: []string{"card_name", "quantity"},
}

// DeckConstructionPlanSchema validates DeckConstructionPlan responses.
var DeckConstructionPlanSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"strategy": {Type: genai.TypeString},
		"card_selections": {
			Type:  genai.TypeArray,
			Items: cardSelectionSchema,
		},
	},
	Required: []string{"strategy", "card_selections"},
}

// RefinementPlanSchema validates RefinementPlan responses.
var RefinementPlanSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"analysis": {Type: genai.TypeString},
		"actions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":        {Type: genai.TypeString, Enum: []string{"add", "remove", "replace"}},
					"card_name":   {Type: genai.TypeString},
					"replacement": {Type: genai.TypeString},
					"quantity":    {Type: genai.TypeInteger},
					"reasoning":   {Type: genai.TypeString},
				},
				Required: []string{"type", "card_name", "quantity"},
			},
		},
	},
	Required: []string{"analysis", "actions"},
}

var cardChangeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"card_name": {Type: genai.TypeString},
		"reason":    {Type: genai.TypeString},
		"quantity":  {Type: genai.TypeInteger},
	},
	Required: []string{"card_name", "quantity"},
}

// DeckImprovementPlanSchema validates DeckImprovementPlan responses.
var DeckImprovementPlanSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"removals":  {Type: genai.TypeArray, Items: cardChangeSchema},
		"additions": {Type: genai.TypeArray, Items: cardChangeSchema},
		"analysis":  {Type: genai.TypeString},
	},
	Required: []string{"removals", "additions", "analysis"},
}

// ModificationIntentSchema validates ModificationIntent responses.
var ModificationIntentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent_type": {
			Type: genai.TypeString,
			Enum: []string{IntentAdd, IntentRemove, IntentReplace, IntentOptimize, IntentStrategyShift},
		},
		"description": {Type: genai.TypeString},
		"card_changes": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"action":      {Type: genai.TypeString, Enum: []string{"add", "remove"}},
					"card_name":   {Type: genai.TypeString},
					"replacement": {Type: genai.TypeString},
					"quantity":    {Type: genai.TypeInteger},
				},
				Required: []string{"action", "card_name"},
			},
		},
		"constraints": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"confidence":  {Type: genai.TypeNumber},
	},
	Required: []string{"intent_type", "description", "confidence"},
}
