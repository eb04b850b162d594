// Package jar handles downloaded archives on disk: where they live in the
// local library directory, how relocation rules are applied to them, and
// which classes they contain.
//
// The library directory uses one folder per coordinate:
//
//	<dir>/<group>/<artifact>/<version>/<artifact>-<version>.jar
//	<dir>/<group>/<artifact>/<version>/<artifact>-<version>-relocated.jar
//
// The group is kept as a single dotted folder name.
package jar
