package manifest

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/Masterminds/semver/v3"
)

// CompilerVersion is the version checked against project.requires.
const CompilerVersion = "0.1.0"

//go:embed schema.cue
var schemaSource string

// Validate checks m against the manifest schema and checks that this
// compiler satisfies the project's version requirement.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest: schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(ctx.Encode(m))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}

	return m.CheckRequires(CompilerVersion)
}

// CheckRequires reports an error if version does not satisfy
// project.requires. An empty requirement accepts every version.
func (m *Manifest) CheckRequires(version string) error {
	if m.Project.Requires == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.Project.Requires)
	if err != nil {
		return fmt.Errorf("manifest: project.requires %q: %w", m.Project.Requires, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("manifest: compiler version %q: %w", version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("manifest: project requires compiler %s, this is %s", m.Project.Requires, version)
	}
	return nil
}
