package services

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"chatroom-backend/internal/models"
)

// Older prompt revisions used a two-way action set and camelCase keys.
var actionAliases = map[string]models.Action{
	"generateText":  models.ActionReply,
	"generateImage": models.ActionGenerateOrEditImage,
	"editImage":     models.ActionGenerateOrEditImage,
}

func buildDecisionPrompt(persona string, req models.ChatRequest) string {
	var b strings.Builder

	// Layer 1: Role
	fmt.Fprintf(&b, "You are a friendly and helpful AI assistant named '%s' in a chat application.\n\n", persona)

	// Layer 2: Input
	b.WriteString("The user sent the following message:\n---MESSAGE START---\n")
	if req.UserText == "" {
		b.WriteString("(no text, images only)")
	} else {
		b.WriteString(req.UserText)
	}
	b.WriteString("\n---MESSAGE END---\n\n")

	if n := len(req.ReferenceImages); n > 0 {
		fmt.Fprintf(&b, "The user attached %d reference image(s). They follow this document in the order they were attached.\n\n", n)
	} else {
		b.WriteString("No images are attached.\n\n")
	}

	// Layer 3: Routing rules
	b.WriteString(`Analyze the message carefully and choose exactly one action:
- "generateOrEditImage" when the user asks for new visual content (e.g. "draw a sunset", "generate an image of a cat", "can you make a picture of a spaceship?") and no images are attached, or the user explicitly says to disregard the attached images. Put the core subject in "image_instruction", set "text" to "Image generation" and "use_reference_images" to false.
- "generateOrEditImage" when images are attached and the user asks to modify, edit, restyle or extend them. Put the user's edit description in "image_instruction", set "text" to "Image modification" and "use_reference_images" to true.
- "describeImage" when images are attached and the user asks a question about them or wants them described. Answer in "text".
- "composeLongForm" when the user asks for long-form writing such as an essay, letter or article. Put the full document in "text": a title or salutation, a body split into clear sections, and a closing. Do not add a signature; one is appended automatically.
- "reply" for every other question, statement or conversational input. Put a helpful, concise, natural answer in "text".
If you are unsure, choose "reply".
Do not start with "The user said..." or "User message:". Just respond naturally.
Make "image_instruction" suitable for an image generation model.

`)

	// Layer 4: Output schema
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n")
	b.WriteString(`{"action": "reply"|"generateOrEditImage"|"describeImage"|"composeLongForm", "text": "string", "image_instruction": "string", "use_reference_images": true|false}`)
	b.WriteString("\n")

	return b.String()
}

// parseDecision validates raw model output against the decision shape.
func parseDecision(raw string) (*models.RoutingDecision, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if !gjson.Valid(raw) {
		// Try to extract the JSON object
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start || !gjson.Valid(raw[start:end+1]) {
			return nil, fmt.Errorf("%w: output is not JSON", ErrInvalidDecision)
		}
		raw = raw[start : end+1]
	}

	root := gjson.Parse(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: output is not an object", ErrInvalidDecision)
	}

	actionField := root.Get("action")
	if actionField.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing action", ErrInvalidDecision)
	}
	name := strings.TrimSpace(actionField.String())
	action := models.Action(name)
	if alias, ok := actionAliases[name]; ok {
		action = alias
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidDecision, name)
	}

	d := &models.RoutingDecision{
		Action:           action,
		Text:             firstString(root, "text", "textResponse"),
		ImageInstruction: firstString(root, "image_instruction", "imageGenerationPrompt"),
	}

	if use := root.Get("use_reference_images"); use.Type == gjson.True || use.Type == gjson.False {
		v := use.Bool()
		d.UseReferenceImages = &v
	}

	return d, nil
}

func firstString(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := root.Get(p); v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
