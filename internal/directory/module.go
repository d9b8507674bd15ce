package directory

import "go.uber.org/fx"

// Module binds the fake directory as the UserDirectory implementation: the
// real directory client is outside this repository's scope (spec
// Non-goals), so this is what every deployment wires until that client
// exists.
var Module = fx.Module("directory",
	fx.Provide(
		NewFakeDirectory,
		func(d *FakeDirectory) UserDirectory { return d },
	),
)
