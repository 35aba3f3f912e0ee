package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// schemaSource constrains a decoded tally.toml. Field names follow the
// json tags on Manifest.
const schemaSource = `
#Config: {
	repl: {
		prompt: string & !=""
		exit:   string & =~"^[^\\s]+$"
		banner: bool
	}
	corpus: {
		files: null | [...string & !=""]
		input: int
	}
	server: {
		addr: string & =~"^[^:\\s]*:[0-9]{1,5}$"
		// nanoseconds
		session_ttl: int & >0
		program_ttl: int & >0
	}
	log: {
		verbosity: int & >=-4 & <=2
		file:      string
	}
	vm: {
		trace: bool
	}
}
`

// Validate checks the manifest against the configuration schema.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("tally.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(m)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s", errors.Details(err, nil))
	}
	return nil
}
