package navigation

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

type named interface {
	Name() string
}

type exception struct {
	name     string
	typeName string
	message  string
	stack    string
}

// describe flattens err into the exception_* fields. The name comes from
// the first error in the chain implementing Name(), falling back to the
// innermost error's type. The stack trace lists the wrap chain followed by
// the stack of the declaring goroutine.
func describe(err error) exception {
	chain := unwrapChain(err)
	innermost := chain[len(chain)-1]

	name := fmt.Sprintf("%T", innermost)
	var n named
	if errors.As(err, &n) {
		name = n.Name()
	}

	var b strings.Builder
	for i, e := range chain {
		fmt.Fprintf(&b, "%s%T: %s\n", strings.Repeat("  ", i), e, e.Error())
	}
	b.Write(debug.Stack())

	return exception{
		name:     name,
		typeName: fmt.Sprintf("%T", err),
		message:  err.Error(),
		stack:    b.String(),
	}
}

func unwrapChain(err error) []error {
	chain := []error{err}
	for {
		next := errors.Unwrap(chain[len(chain)-1])
		if next == nil || len(chain) >= 32 {
			return chain
		}
		chain = append(chain, next)
	}
}
