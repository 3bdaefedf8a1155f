// Package script is a small scripting front end for package lang.
//
// A script is a sequence of statements separated by semicolons or newlines:
//
//	const { host, port = 8080 } = config
//	let [first, ...others] = hosts
//	function url(path = "/") { return `http://${host}:${port}${path}` }
//	for (const h of others) print(h)
//
// Declarations (let, const, var), destructuring assignment, function
// declarations and expressions, arrow functions, template literals and
// tagged templates, if/else, three-clause for loops and for-of loops are
// parsed here and executed by an [Interpreter] with the binding semantics of
// package lang. All other expressions are handed verbatim to the expr-lang
// engine ([github.com/expr-lang/expr]); identifiers they read are resolved
// through the scope chain, so reading a let or const binding before its
// declaration has run fails just as it does in a pattern default.
//
// Comments are written with //, # or /* */. A # inside brackets is passed
// through to the expression engine, which uses it for predicate arguments.
//
// # Builtins
//
// Every program sees an immutable builtin scope above its globals:
//
//	env(name)         process environment variable, or undefined
//	keys(value)       own keys of an object or list
//	print(values...)  write values to standard output
//	raw, reconstruct  template tags
//	cwd()             working directory
//	file.exists(p) file.isDir(p) file.isRegular(p) file.isSymlink(p)
//	path.abs(p) path.cat(elem...) path.rel(from, to)
//	mung.prefix(list, items...) mung.prefixif(list, pred, items...)
//	target platform hostname user shell
//	null undefined
//
// # Output
//
// [Program.Format] prints canonical source. [Program.FormatJSON] and
// [Program.FormatYAML] print the syntax tree. [WriteBindings] dumps the
// bindings of a scope.
package script
