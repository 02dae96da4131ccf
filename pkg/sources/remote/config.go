package remote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config describes one remote product API.
type Config struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint" validate:"required,url"`
	ConsumerKey    string `json:"consumerKey,omitempty" yaml:"consumer_key" validate:"required_with=ConsumerSecret"`
	ConsumerSecret string `json:"consumerSecret,omitempty" yaml:"consumer_secret"`
	PerPage        int    `json:"perPage,omitempty" yaml:"per_page" validate:"gte=0,lte=1000"`
	OnlyPublished  bool   `json:"onlyPublished,omitempty" yaml:"only_published"`
	OnlyFeatured   bool   `json:"onlyFeatured,omitempty" yaml:"only_featured"`
	OnlyWithImages bool   `json:"onlyWithImages,omitempty" yaml:"only_with_images"`
	TimeoutMs      int    `json:"timeoutMs,omitempty" yaml:"timeout_ms" validate:"gte=0"`
	Retries        int    `json:"retries,omitempty" yaml:"retries" validate:"gte=0,lte=10"`
}

// Validate checks the config and reports the first offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewValidationError(fe.Field(), fe.Value(), describe(fe))
	}
	return errors.WrapValidation("config", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return fmt.Sprintf("is required when %s is set", fe.Param())
	case "url":
		return "must be an absolute URL"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}

// Filter returns the record filter the config asks for.
func (c *Config) Filter() Filter {
	return Filter{
		OnlyPublished:  c.OnlyPublished,
		OnlyFeatured:   c.OnlyFeatured,
		OnlyWithImages: c.OnlyWithImages,
	}
}

// PageSize returns the effective per_page value.
func (c *Config) PageSize() int {
	switch {
	case c.PerPage <= 0:
		return constants.DefaultPageSize
	case c.PerPage > constants.MaxPageSize:
		return constants.MaxPageSize
	}
	return c.PerPage
}

// Timeout returns the per-request timeout, zero meaning the client default.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Source returns the endpoint host, used to label errors and metrics.
func (c *Config) Source() string {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" {
		return c.Endpoint
	}
	return u.Host
}

// pageURL builds the list request for page, keeping any query parameters
// already present on the endpoint.
func (c *Config) pageURL(page int) (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", errors.NewValidationError("Endpoint", c.Endpoint, err.Error())
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.PageSize()))
	if c.OnlyPublished {
		q.Set("status", constants.PublishedStatus)
	}
	if c.OnlyFeatured {
		q.Set("featured", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// recordURL builds the single-record request for ref.
func (c *Config) recordURL(ref string) (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", errors.NewValidationError("Endpoint", c.Endpoint, err.Error())
	}
	u = u.JoinPath(strings.TrimSpace(ref))
	return u.String(), nil
}
