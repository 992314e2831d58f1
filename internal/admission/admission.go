// Package admission decides whether a submitted message is stored.
//
// A submission runs through, in order: the presence check, the text filter,
// the filename filter, the image classifier, category normalisation, image
// materialisation, and finally record construction. The first failing step
// ends the submission with a *Rejection.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alphabot-ai/confessional/internal/classifier"
	"github.com/alphabot-ai/confessional/internal/imagestore"
	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/metrics"
	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/moderation"
)

type Kind string

const (
	KindEmpty      Kind = "empty"
	KindTooLong    Kind = "too_long"
	KindText       Kind = "offensive_text"
	KindFilename   Kind = "offensive_filename"
	KindImage      Kind = "inappropriate_image"
	KindUnverified Kind = "unverified_image"
)

var reasons = map[Kind]string{
	KindEmpty:      "Message or image is required",
	KindTooLong:    "Message is too long",
	KindText:       "Message contains inappropriate content",
	KindFilename:   "Filename contains inappropriate content",
	KindImage:      "Image contains inappropriate content",
	KindUnverified: "Image could not be verified",
}

// Rejection is returned when a submission is refused. Reason is safe to
// show to the submitter.
type Rejection struct {
	Kind   Kind
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func reject(kind Kind) *Rejection {
	return &Rejection{Kind: kind, Reason: reasons[kind]}
}

// IsRejection reports whether err is a moderation or validation refusal.
func IsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

type FailPolicy string

const (
	// FailOpen admits images the classifier could not judge.
	FailOpen FailPolicy = "open"
	// FailClosed rejects them.
	FailClosed FailPolicy = "closed"
)

type Submission struct {
	Text        string
	Category    string
	DisplayName string
	Avatar      string
	ImageURL    string
	Image       *imagestore.Upload
}

func (s Submission) hasFile() bool {
	return s.Image != nil && len(s.Image.Data) > 0
}

// Classifier is the part of classifier.Adapter the pipeline needs.
type Classifier interface {
	Available() bool
	Classify(ctx context.Context, data []byte, mime string) ([]model.Prediction, error)
}

type MessageInserter interface {
	InsertMessage(ctx context.Context, msg model.Message) error
}

type Config struct {
	Categories         []model.Category
	DefaultCategory    model.Category
	DefaultDisplayName string
	DefaultAvatar      string
	// MaxTextLength and MaxDisplayName count runes; zero means unlimited.
	MaxTextLength  int
	MaxDisplayName int
	FailPolicy     FailPolicy
	Policy         classifier.Policy
}

func DefaultConfig() Config {
	return Config{
		Categories:         model.DefaultCategories,
		DefaultCategory:    model.DefaultCategory,
		DefaultDisplayName: "Anonymous",
		DefaultAvatar:      "👤",
		MaxTextLength:      2000,
		MaxDisplayName:     40,
		FailPolicy:         FailOpen,
		Policy:             classifier.DefaultPolicy(),
	}
}

type Pipeline struct {
	cfg        Config
	filter     *moderation.Filter
	classifier Classifier
	images     imagestore.Store
	messages   MessageInserter
	ids        *IDGenerator
	now        func() time.Time
}

// New builds a pipeline. cls may be nil when image classification is
// disabled; uploads are then admitted without a check.
func New(cfg Config, filter *moderation.Filter, cls Classifier, images imagestore.Store, messages MessageInserter) *Pipeline {
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = model.DefaultCategory
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = model.DefaultCategories
	}
	if cfg.DefaultDisplayName == "" {
		cfg.DefaultDisplayName = "Anonymous"
	}
	if cfg.DefaultAvatar == "" {
		cfg.DefaultAvatar = "👤"
	}
	if cfg.FailPolicy == "" {
		cfg.FailPolicy = FailOpen
	}
	if filter == nil {
		filter = moderation.NewDefault()
	}
	if images == nil {
		images = imagestore.Inline{}
	}
	return &Pipeline{
		cfg:        cfg,
		filter:     filter,
		classifier: cls,
		images:     images,
		messages:   messages,
		ids:        NewIDGenerator(),
		now:        time.Now,
	}
}

// Submit runs sub through the pipeline and returns the stored message.
// Cancelling ctx does not abort a submission that has started.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (model.Message, error) {
	ctx = context.WithoutCancel(ctx)
	msg, err := p.admit(ctx, sub)
	if err != nil {
		if r, ok := IsRejection(err); ok {
			metrics.RecordSubmission("rejected_" + string(r.Kind))
			logging.Ctx(ctx).Warn().Str("kind", string(r.Kind)).Msg("submission rejected")
		} else {
			metrics.RecordSubmission("error")
			logging.Ctx(ctx).Error().Err(err).Msg("submission failed")
		}
		return model.Message{}, err
	}
	metrics.RecordSubmission("accepted")
	metrics.MessagesStored.Inc()
	logging.Ctx(ctx).Info().Int64("id", msg.ID).Str("category", string(msg.Category)).Bool("image", msg.Image != nil).Msg("submission accepted")
	return msg, nil
}

func (p *Pipeline) admit(ctx context.Context, sub Submission) (model.Message, error) {
	text := strings.TrimSpace(sub.Text)
	imageURL := strings.TrimSpace(sub.ImageURL)

	if text == "" && !sub.hasFile() && imageURL == "" {
		return model.Message{}, reject(KindEmpty)
	}
	if p.cfg.MaxTextLength > 0 && utf8.RuneCountInString(text) > p.cfg.MaxTextLength {
		return model.Message{}, reject(KindTooLong)
	}
	if d := p.filter.Evaluate(text); !d.Admit {
		logging.Ctx(ctx).Debug().Str("reason", string(d.Reason)).Str("match", d.Match).Msg("text filtered")
		return model.Message{}, reject(KindText)
	}
	if sub.hasFile() {
		if d := p.filter.Evaluate(sub.Image.Filename); !d.Admit {
			logging.Ctx(ctx).Debug().Str("reason", string(d.Reason)).Str("match", d.Match).Msg("filename filtered")
			return model.Message{}, reject(KindFilename)
		}
		if err := p.checkImage(ctx, *sub.Image); err != nil {
			return model.Message{}, err
		}
	}

	category := p.NormalizeCategory(sub.Category)

	var image *string
	switch {
	case sub.hasFile():
		ref, err := p.images.Put(ctx, *sub.Image)
		if err != nil {
			return model.Message{}, fmt.Errorf("store image: %w", err)
		}
		image = &ref
	case imageURL != "":
		image = &imageURL
	}

	msg := model.Message{
		ID:          p.ids.Next(),
		Text:        text,
		Category:    category,
		Timestamp:   p.now().UTC(),
		Image:       image,
		Likes:       0,
		DisplayName: p.displayName(sub.DisplayName),
		Avatar:      p.avatar(sub.Avatar),
	}
	if err := p.messages.InsertMessage(ctx, msg); err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// checkImage classifies an upload. Unsupported formats always pass; other
// classifier failures follow the configured fail policy.
func (p *Pipeline) checkImage(ctx context.Context, up imagestore.Upload) error {
	if p.classifier == nil {
		return nil
	}
	if !classifier.Supported(up.MIME) {
		logging.Ctx(ctx).Debug().Str("mime", up.MIME).Msg("image format not classifiable; skipping check")
		return nil
	}
	var (
		preds []model.Prediction
		err   error
	)
	if p.classifier.Available() {
		preds, err = p.classifier.Classify(ctx, up.Data, up.MIME)
	} else {
		err = classifier.ErrUnavailable
	}

	switch {
	case errors.Is(err, classifier.ErrUnsupportedFormat):
		logging.Ctx(ctx).Debug().Str("mime", up.MIME).Msg("image format not classifiable; skipping check")
		return nil
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Str("fail_policy", string(p.cfg.FailPolicy)).Msg("image classification failed")
		if p.cfg.FailPolicy == FailClosed {
			return reject(KindUnverified)
		}
		return nil
	}

	if blocked, top := p.cfg.Policy.Blocks(preds); blocked {
		logging.Ctx(ctx).Warn().Str("label", top.Label).Float64("probability", top.Probability).Msg("image blocked by classifier")
		return reject(KindImage)
	}
	return nil
}

// NormalizeCategory returns the configured category matching raw, or the
// default category when raw is empty or unknown.
func (p *Pipeline) NormalizeCategory(raw string) model.Category {
	c := model.Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range p.cfg.Categories {
		if c == known {
			return c
		}
	}
	return p.cfg.DefaultCategory
}

func (p *Pipeline) displayName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return p.cfg.DefaultDisplayName
	}
	return truncate(name, p.cfg.MaxDisplayName)
}

func (p *Pipeline) avatar(raw string) string {
	a := strings.TrimSpace(raw)
	if a == "" {
		return p.cfg.DefaultAvatar
	}
	return truncate(a, 16)
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
