package strategy

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

var indicatorNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report yaml field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	_ = v.RegisterValidation("indicator_name", func(fl validator.FieldLevel) bool {
		return indicatorNamePattern.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("engine_version", func(fl validator.FieldLevel) bool {
		return version.IsValidRequirement(fl.Field().String())
	})

	return v
}

// validate checks a resolved document: struct tags first, then the rules spanning fields.
func validate(doc Document) error {
	if err := structValidator.Struct(doc); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidStrategy, describeValidationError(err), err)
	}

	blocks := 0
	for _, present := range []bool{doc.Crossover != nil, doc.MultiIndicator != nil, doc.RSIExtremes != nil} {
		if present {
			blocks++
		}
	}

	if blocks != 1 {
		return errors.Newf(errors.ErrCodeInvalidStrategy, "strategy %q must have exactly one parameter block, found %d", doc.Name, blocks)
	}

	switch doc.Kind {
	case types.StrategyKindCrossover:
		if doc.Crossover == nil {
			return errors.New(errors.ErrCodeInvalidStrategy, "kind crossover requires a crossover block")
		}
	case types.StrategyKindMultiIndicator:
		if doc.MultiIndicator == nil {
			return errors.New(errors.ErrCodeInvalidStrategy, "kind multi_indicator requires a multi_indicator block")
		}

		if doc.MultiIndicator.RSIMin > doc.MultiIndicator.RSIMax {
			return errors.Newf(errors.ErrCodeInvalidStrategy, "multi_indicator.rsi_min (%v) must not exceed rsi_max (%v)",
				doc.MultiIndicator.RSIMin, doc.MultiIndicator.RSIMax)
		}
	case types.StrategyKindRSIExtremes:
		if doc.RSIExtremes == nil {
			return errors.New(errors.ErrCodeInvalidStrategy, "kind rsi_extremes requires an rsi_extremes block")
		}

		if doc.RSIExtremes.Oversold >= doc.RSIExtremes.Overbought {
			return errors.Newf(errors.ErrCodeInvalidStrategy, "rsi_extremes.oversold (%v) must be below overbought (%v)",
				doc.RSIExtremes.Oversold, doc.RSIExtremes.Overbought)
		}
	}

	return validatePolicy(doc.Execution)
}

func validatePolicy(p ExecutionPolicy) error {
	switch p.PositionSizing {
	case PositionSizingPercentOfEquity:
		if p.PositionSizePercent <= 0 {
			return errors.New(errors.ErrCodeInvalidPositionSize, "execution.position_size_percent must be greater than 0")
		}

		if p.PositionSizeAmount != 0 {
			return errors.New(errors.ErrCodeInvalidPositionSize, "execution.position_size_amount cannot be combined with percent_of_equity sizing")
		}
	case PositionSizingFixedAmount:
		if p.PositionSizeAmount <= 0 {
			return errors.New(errors.ErrCodeInvalidPositionSize, "execution.position_size_amount must be greater than 0")
		}

		if p.PositionSizePercent != 0 {
			return errors.New(errors.ErrCodeInvalidPositionSize, "execution.position_size_percent cannot be combined with fixed_amount sizing")
		}
	}

	if p.CommissionModel == CommissionModelZero && p.CommissionPerShare != 0 {
		return errors.New(errors.ErrCodeInvalidStrategy, "execution.commission_per_share must be 0 with the zero commission model")
	}

	return nil
}

func describeValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return "invalid strategy"
	}

	reasons := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		// drop the root struct name
		path := fieldErr.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}

		reasons = append(reasons, fmt.Sprintf("%s failed %s", path, describeTag(fieldErr)))
	}

	return "invalid strategy: " + strings.Join(reasons, "; ")
}

func describeTag(fieldErr validator.FieldError) string {
	if fieldErr.Param() == "" {
		return fieldErr.Tag()
	}

	return fmt.Sprintf("%s=%s", fieldErr.Tag(), fieldErr.Param())
}
