package gateway

import (
	"context"
	"fmt"
	"strings"

	"puppet-server/internal/model"
)

// minFilterAnswer is the shortest model answer accepted as a verdict.
const minFilterAnswer = 6

type Verdict struct {
	Allow     bool   `json:"allow"`
	Rationale string `json:"rationale"`
}

func filterPrompt(target string) string {
	return fmt.Sprintf("Is %q a legitimate website that should be allowed, rather than an ad or tracking domain? "+
		"Start your answer with yes or no, then give a short reason.", target)
}

// ContentFilter asks the model whether target should be allowed. accountID is optional; when
// set, the account must exist and its key is used for hosted models. No history is written.
func (g *Gateway) ContentFilter(ctx context.Context, accountID, target, selector string) (Verdict, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Verdict{}, fmt.Errorf("%w: url is required", model.ErrValidation)
	}

	var acc model.Account
	if accountID != "" {
		var err error
		if acc, err = g.store.GetAccount(ctx, accountID); err != nil {
			return Verdict{}, err
		}
	}
	resolved, err := g.catalog.Resolve(selector)
	if err != nil {
		return Verdict{}, err
	}

	res, err := g.generate(ctx, resolved, acc, filterPrompt(target))
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(res.Text)
}

func parseVerdict(answer string) (Verdict, error) {
	answer = strings.TrimSpace(answer)
	if len(answer) < minFilterAnswer {
		return Verdict{}, fmt.Errorf("%w: response too short: %q", model.ErrUpstream, answer)
	}
	lower := strings.ToLower(answer)
	switch {
	case strings.HasPrefix(lower, "yes"):
		return Verdict{Allow: true, Rationale: answer}, nil
	case strings.HasPrefix(lower, "no"):
		return Verdict{Allow: false, Rationale: answer}, nil
	default:
		return Verdict{}, fmt.Errorf("%w: no yes/no verdict in %q", model.ErrUpstream, answer)
	}
}
