package syscall

import "github.com/ethindp/kernel/kernel"

type (
	// checkFunc validates the parameters of a decoded request before
	// its handler may run. Returning false fails the request with
	// StatusInvalidParameters and guarantees no side effects occurred.
	checkFunc func(desc *Descriptor) bool

	// handlerFunc services a validated request and returns its success
	// value or a domain error to be converted into a status code.
	handlerFunc func(desc *Descriptor) (uint64, *kernel.Error)
)

type codeDesc struct {
	name string

	// paramCount is the number of leading Params entries the code
	// consumes; the remaining registers are ignored.
	paramCount int

	check   checkFunc
	handler handlerFunc
}

type categoryDesc struct {
	name  string
	codes []codeDesc
}

// categories is the dispatch table the gateway consults. It is the
// single source of truth for which calls exist: adding a syscall means
// adding an entry here, never touching the gateway logic. The table is
// read-only after init and deliberately sparse; only the memory
// category is defined so far.
var categories = []categoryDesc{
	{
		name: "memory",
		codes: []codeDesc{
			{
				name:       "allocate_paged_range",
				paramCount: 2,
				check:      checkAllocatePagedRange,
				handler:    allocatePagedRange,
			},
		},
	},
}

func lookupCategory(id uint64) *categoryDesc {
	if id >= uint64(len(categories)) {
		return nil
	}
	return &categories[id]
}

func (c *categoryDesc) lookupCode(id uint64) *codeDesc {
	if id >= uint64(len(c.codes)) {
		return nil
	}
	return &c.codes[id]
}
