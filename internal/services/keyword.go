package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"unicode"

	"chatroom-backend/internal/datauri"
	"chatroom-backend/internal/models"
)

// Trigger phrases, longest first so subject extraction cuts after the
// most specific match.
var (
	imageTriggers = []string{
		"generate an image of", "generate a picture of", "create an image of",
		"create a picture of", "make an image of", "make a picture of",
		"show me a picture of", "show me an image of", "draw me", "draw",
		"paint", "sketch", "illustrate", "picture of", "image of",
	}
	editTriggers = []string{
		"make it", "make the", "turn it", "turn this", "edit", "modify", "change",
		"add", "remove", "replace", "recolor", "colorize", "restyle",
	}
	disregardTriggers = []string{
		"ignore the image", "ignore the picture", "ignore the photo",
		"ignore the attached", "ignore my image", "without the image", "from scratch",
	}
	writeVerbs    = []string{"write", "compose", "draft"}
	longFormNouns = []string{"essay", "letter", "article", "blog post", "report", "speech"}
)

// KeywordDecider is the offline decision backend: a phrase matcher that
// follows the same routing rules as the hosted model.
type KeywordDecider struct{}

func NewKeywordDecider() *KeywordDecider {
	return &KeywordDecider{}
}

func (k *KeywordDecider) Decide(_ context.Context, req models.ChatRequest) (*models.RoutingDecision, error) {
	words := normalize(req.UserText)

	if containsAny(words, writeVerbs) && containsAny(words, longFormNouns) {
		return &models.RoutingDecision{
			Action: models.ActionComposeLongForm,
			Text:   outlineDocument(req.UserText),
		}, nil
	}

	if req.HasImages() {
		if containsAny(words, disregardTriggers) && containsAny(words, imageTriggers) {
			no := false
			return &models.RoutingDecision{
				Action:             models.ActionGenerateOrEditImage,
				Text:               LabelImageGeneration,
				ImageInstruction:   subjectAfter(req.UserText, imageTriggers),
				UseReferenceImages: &no,
			}, nil
		}
		if containsAny(words, editTriggers) {
			yes := true
			return &models.RoutingDecision{
				Action:             models.ActionGenerateOrEditImage,
				Text:               LabelImageModification,
				ImageInstruction:   req.UserText,
				UseReferenceImages: &yes,
			}, nil
		}
		return &models.RoutingDecision{
			Action: models.ActionDescribeImage,
			Text:   describeImages(req.ReferenceImages),
		}, nil
	}

	if containsAny(words, imageTriggers) {
		return &models.RoutingDecision{
			Action:           models.ActionGenerateOrEditImage,
			Text:             LabelImageGeneration,
			ImageInstruction: subjectAfter(req.UserText, imageTriggers),
		}, nil
	}

	return &models.RoutingDecision{
		Action: models.ActionReply,
		Text:   fmt.Sprintf("You said: %q. I'm running offline, so I can only echo messages, draw placeholder images and outline documents.", req.UserText),
	}, nil
}

// normalize lowercases text and collapses every non-alphanumeric run into
// a single space, padded on both ends for whole-phrase matching.
func normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}

func containsAny(words string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(words, " "+p+" ") {
			return true
		}
	}
	return false
}

// subjectAfter returns the user's own wording after the first trigger
// phrase, with trailing sentence punctuation removed.
func subjectAfter(text string, phrases []string) string {
	tokens := tokenize(text)
	for _, p := range phrases {
		want := strings.Fields(p)
		for i := 0; i+len(want) < len(tokens); i++ {
			if !tokensMatch(tokens[i:i+len(want)], want) {
				continue
			}
			subject := strings.TrimRight(strings.TrimSpace(text[tokens[i+len(want)].start:]), " .!?")
			if subject != "" {
				return subject
			}
			break
		}
	}
	return strings.TrimSpace(text)
}

type token struct {
	word  string
	start int
}

// tokenize splits text the same way normalize does, keeping byte offsets
// into the original.
func tokenize(text string) []token {
	var tokens []token
	var word strings.Builder
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			word.WriteRune(unicode.ToLower(r))
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{word: word.String(), start: start})
			word.Reset()
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{word: word.String(), start: start})
	}
	return tokens
}

func tokensMatch(tokens []token, words []string) bool {
	for i, w := range words {
		if tokens[i].word != w {
			return false
		}
	}
	return true
}

func outlineDocument(request string) string {
	topic := strings.TrimSpace(request)
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", topic)
	b.WriteString("Dear reader,\n\n")
	b.WriteString("## Introduction\n\nThis draft sets out the request and the points it should cover.\n\n")
	b.WriteString("## Body\n\nOffline mode produces an outline only. Connect the hosted model for a full draft.\n\n")
	b.WriteString("## Conclusion\n\nSummarize the key points and the desired outcome.\n\n")
	b.WriteString("Kind regards,")
	return b.String()
}

func describeImages(images []string) string {
	descriptions := make([]string, 0, len(images))
	for i, raw := range images {
		d, err := datauri.ParseImage(raw)
		if err != nil {
			descriptions = append(descriptions, fmt.Sprintf("image %d could not be read", i+1))
			continue
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(d.Data))
		if err != nil {
			descriptions = append(descriptions, fmt.Sprintf("image %d is a %s file I can't decode offline", i+1, d.MIMEType))
			continue
		}
		descriptions = append(descriptions, fmt.Sprintf("image %d is a %dx%d %s", i+1, cfg.Width, cfg.Height, strings.ToUpper(format)))
	}
	return "I'm running offline, so I can only report basics: " + strings.Join(descriptions, "; ") + "."
}

// PlaceholderImageGenerator renders a deterministic gradient PNG seeded by
// the instruction, standing in for the hosted image model offline.
type PlaceholderImageGenerator struct {
	Size int
}

func NewPlaceholderImageGenerator() *PlaceholderImageGenerator {
	return &PlaceholderImageGenerator{Size: 256}
}

func (p *PlaceholderImageGenerator) GenerateImage(_ context.Context, references []*datauri.DataURI, instruction string) (*GeneratedImage, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrNoImage
	}

	h := fnv.New32a()
	h.Write([]byte(instruction))
	seed := h.Sum32()
	from := color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 255}
	to := color.RGBA{R: 255 - from.R, G: 255 - from.G, B: 255 - from.B, A: 255}

	size := p.Size
	if size <= 0 {
		size = 256
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(2*size)
			img.Set(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}

	return &GeneratedImage{
		MIMEType: "image/png",
		Data:     buf.Bytes(),
		Text:     fmt.Sprintf("Placeholder for %q (%d reference image(s))", instruction, len(references)),
	}, nil
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
