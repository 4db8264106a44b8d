package form

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dukerupert/benefitform/internal/model"
)

// Env is what visibility conditions are evaluated against.
type Env struct {
	HasSpouse           bool
	HasChildren         bool
	ChildCount          int
	HasPhysicalCert     bool
	HasMentalCert       bool
	HasIntellectualCert bool
}

// EnvOf derives the condition environment from the respondent's answers.
func EnvOf(y model.Yourself) Env {
	return Env{
		HasSpouse:           isTrue(y.HasSpouse),
		HasChildren:         isTrue(y.HasChildren),
		ChildCount:          y.EffectiveChildCount(),
		HasPhysicalCert:     isTrue(y.PhysicalCert),
		HasMentalCert:       isTrue(y.MentalCert),
		HasIntellectualCert: isTrue(y.IntellectualCert),
	}
}

// Condition is a compiled boolean expression. The zero Condition is always
// true.
type Condition struct {
	source  string
	program *vm.Program
}

func Compile(source string) (Condition, error) {
	if source == "" {
		return Condition{}, nil
	}
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return Condition{}, fmt.Errorf("compile condition %q: %w", source, err)
	}
	return Condition{source: source, program: program}, nil
}

func MustCompile(source string) Condition {
	c, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Condition) Eval(env Env) (bool, error) {
	if c.program == nil {
		return true, nil
	}
	out, err := expr.Run(c.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", c.source, err)
	}
	b, _ := out.(bool)
	return b, nil
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
