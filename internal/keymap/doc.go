// Package keymap compiles binding specification documents into concrete
// key bindings.
//
// Compilation runs a fixed pipeline over a spec.Document:
//
//  1. Default expansion: path defaults are merged into each item and
//     runCommands lists are flattened into command descriptors.
//  2. Key-set expansion: wildcard and array keys produce one item per key,
//     with {key} placeholders substituted.
//  3. Prefix fan-out: one item per valid prefix.
//  4. Mode fan-out: one item per mode, after resolving !mode negation.
//  5. Sequence resolution: multi-key sequences become chained prefix
//     bindings, prefix codes are assigned and duplicates are resolved.
//  6. Guard composition: mode and prefix code are folded into the when
//     clause.
//
// Every binding produced invokes the dispatch command ("masterkey.do" by
// default) with the descriptor list as its args. Problems are collected
// and never abort compilation.
//
// Bindings for a key sequence "g g":
//
//	key: g  when: ... && masterkey.prefixCode == 0  do: masterkey.prefix {code: 1}
//	key: g  when: ... && masterkey.prefixCode == 1  do: <the bound commands>
package keymap
