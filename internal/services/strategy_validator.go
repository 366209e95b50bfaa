package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/utils"
)

// ErrNoEntryConditions is reported for a strategy without entry conditions.
var ErrNoEntryConditions = errors.New("at least one entry condition is required")

var (
	priceFields          = []string{"open", "high", "low", "close"}
	indicatorNames       = []string{"sma", "ema", "rsi", "daily_return"}
	timeFields           = []string{"trading_day", "day_of_week", "day_of_month", "month", "days_held"}
	predictabilityFields = []string{"overall", "confidence", "information", "pattern", "timing", "direction"}
)

// StrategyValidator checks a strategy before any simulation work. It reports
// every violation at once.
type StrategyValidator struct {
	validate *validator.Validate
}

// NewStrategyValidator creates a validator that reports JSON field names.
func NewStrategyValidator() *StrategyValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &StrategyValidator{validate: v}
}

// ValidationTarget carries the run context a strategy is validated against.
type ValidationTarget struct {
	Ticker   string
	HasScore bool
}

// Validate checks the strategy on its own.
func (sv *StrategyValidator) Validate(s *models.Strategy) error {
	errs := &utils.ValidationErrors{}
	sv.collect(s, errs)
	return errs.Err()
}

// ValidateFor checks the strategy and its fit with a concrete run.
func (sv *StrategyValidator) ValidateFor(s *models.Strategy, target ValidationTarget) error {
	errs := &utils.ValidationErrors{}
	sv.collect(s, errs)

	if len(s.Universe) > 0 && !inUniverse(s.Universe, target.Ticker) {
		errs.Add("universe", "ticker %s is not part of the strategy universe", strings.ToUpper(target.Ticker))
	}
	if s.UsesPredictability() && !target.HasScore {
		errs.Add("predictability", "strategy has predictability conditions but no predictability score was supplied")
	}

	return errs.Err()
}

func (sv *StrategyValidator) collect(s *models.Strategy, errs *utils.ValidationErrors) {
	if err := sv.validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs.Add(fieldPath(fe), "%s", tagMessage(fe))
			}
		} else {
			errs.Add("", "%v", err)
		}
	}

	if len(s.EntryConditions) == 0 {
		errs.AddError("entry_conditions", ErrNoEntryConditions)
	}
	checkConditions("entry_conditions", s.EntryConditions, errs)
	checkConditions("exit_conditions", s.ExitConditions, errs)

	ps := s.PositionSizing
	if (ps.Type == models.SizingPercentage || ps.Type == models.SizingDynamic) && ps.Value > 100 {
		errs.Add("position_sizing.value", "allocation %.2f%% exceeds 100%%", ps.Value)
	}
}

func checkConditions(list string, conds []models.Condition, errs *utils.ValidationErrors) {
	for i, c := range conds {
		path := fmt.Sprintf("%s[%d]", list, i)

		switch {
		case i == 0 && c.LogicOperator != "":
			errs.Add(path+".logic_operator", "must be omitted on the first condition")
		case i > 0 && c.LogicOperator == "":
			errs.Add(path+".logic_operator", "is required after the first condition (AND or OR)")
		}

		switch c.Type {
		case models.ConditionPrice:
			if c.Field != "" && !contains(priceFields, c.Field) {
				errs.Add(path+".field", "unknown price field %q, expected one of %v", c.Field, priceFields)
			}
			if c.Value <= 0 && (c.Operator == models.OpLessThan || c.Operator == models.OpLessThanEqual) {
				errs.Add(path+".value", "price can never be below %v", c.Value)
			}
		case models.ConditionIndicator:
			switch {
			case !contains(indicatorNames, c.Indicator):
				errs.Add(path+".indicator", "unknown indicator %q, expected one of %v", c.Indicator, indicatorNames)
			case c.Indicator == "rsi" && c.Period < 2:
				errs.Add(path+".period", "rsi needs a period of at least 2")
			case (c.Indicator == "sma" || c.Indicator == "ema") && c.Period < 1:
				errs.Add(path+".period", "%s needs a period of at least 1", c.Indicator)
			}
		case models.ConditionTime:
			if !contains(timeFields, c.Field) {
				errs.Add(path+".field", "unknown time field %q, expected one of %v", c.Field, timeFields)
			}
		case models.ConditionPredictability:
			if c.Field != "" && !contains(predictabilityFields, c.Field) {
				errs.Add(path+".field", "unknown predictability field %q, expected one of %v", c.Field, predictabilityFields)
			}
		}
	}

	checkPriceBounds(list, conds, errs)
}

// checkPriceBounds rejects AND-only lists whose price bounds on a single
// field cannot all hold at once, such as close > 110 AND close < 100.
func checkPriceBounds(list string, conds []models.Condition, errs *utils.ValidationErrors) {
	for _, c := range conds {
		if c.LogicOperator == models.LogicOr {
			return
		}
	}

	type bounds struct {
		lo, hi             float64
		hasLo, hasHi       bool
		loStrict, hiStrict bool
	}
	byField := make(map[string]*bounds)
	var order []string

	for _, c := range conds {
		if c.Type != models.ConditionPrice {
			continue
		}
		field := c.Field
		if field == "" {
			field = "close"
		}
		b, ok := byField[field]
		if !ok {
			b = &bounds{}
			byField[field] = b
			order = append(order, field)
		}

		raiseLo := func(v float64, strict bool) {
			if !b.hasLo || v > b.lo || (v == b.lo && strict) {
				b.lo, b.loStrict, b.hasLo = v, strict, true
			}
		}
		lowerHi := func(v float64, strict bool) {
			if !b.hasHi || v < b.hi || (v == b.hi && strict) {
				b.hi, b.hiStrict, b.hasHi = v, strict, true
			}
		}

		switch c.Operator {
		case models.OpGreaterThan:
			raiseLo(c.Value, true)
		case models.OpGreaterThanEqual:
			raiseLo(c.Value, false)
		case models.OpLessThan:
			lowerHi(c.Value, true)
		case models.OpLessThanEqual:
			lowerHi(c.Value, false)
		case models.OpEqual:
			raiseLo(c.Value, false)
			lowerHi(c.Value, false)
		}
	}

	for _, field := range order {
		b := byField[field]
		if !b.hasLo || !b.hasHi {
			continue
		}
		if b.lo > b.hi || (b.lo == b.hi && (b.loStrict || b.hiStrict)) {
			errs.Add(list, "conflicting price conditions on %s: no price satisfies both the lower bound %v and the upper bound %v", field, b.lo, b.hi)
		}
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("%v is not one of [%s]", fe.Value(), fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func inUniverse(universe []string, ticker string) bool {
	for _, u := range universe {
		if strings.EqualFold(strings.TrimSpace(u), ticker) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
