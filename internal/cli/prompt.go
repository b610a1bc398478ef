package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-promptkit/pkg/coerce"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("prompt aborted")

// surveyPrompter asks on the terminal, writing prompts to stderr so stdout
// only carries the rendered output.
type surveyPrompter struct {
	opts []survey.AskOpt
}

func newSurveyPrompter() *surveyPrompter {
	return &surveyPrompter{opts: []survey.AskOpt{survey.WithStdio(os.Stdin, os.Stderr, os.Stderr)}}
}

func (p *surveyPrompter) Prompt(ctx context.Context, spec schema.ParameterSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	message := fmt.Sprintf("%s (%s)", spec.Name, spec.Type)

	switch {
	case len(spec.Constraints.Enum) > 0:
		var out string
		prompt := &survey.Select{Message: message, Options: spec.Constraints.Enum, Help: spec.Description}
		if err := survey.AskOne(prompt, &out, p.opts...); err != nil {
			return "", translateSurveyErr(err)
		}
		return out, nil
	case spec.Type == schema.TypeBoolean:
		var out bool
		prompt := &survey.Confirm{Message: message, Help: spec.Description}
		if err := survey.AskOne(prompt, &out, p.opts...); err != nil {
			return "", translateSurveyErr(err)
		}
		return strconv.FormatBool(out), nil
	default:
		var out string
		prompt := &survey.Input{Message: message, Help: spec.Description}
		opts := append([]survey.AskOpt{survey.WithValidator(answerValidator(spec))}, p.opts...)
		if err := survey.AskOne(prompt, &out, opts...); err != nil {
			return "", translateSurveyErr(err)
		}
		return out, nil
	}
}

// answerValidator rejects text that would fail coercion or the parameter's
// constraints, so the user can retry in place.
func answerValidator(spec schema.ParameterSpec) survey.Validator {
	return func(ans any) error {
		text, _ := ans.(string)
		value, err := coerce.Parameter(spec.Name, text, spec.Type)
		if err != nil {
			return err
		}
		_, err = spec.Validate(value)
		return err
	}
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
