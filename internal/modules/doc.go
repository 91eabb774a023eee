// Package modules contains the built-in statement kinds.
//
//	concat(string...)                              joined string, exposed as ""
//	concatv(list)                                  same, from a list of strings
//	alias(string target)                           forwards to another object
//	explode(string delim, string input [, limit])  list of pieces, exposed as ""
//	backtrack_point()                              target for ::go()
//	backtrack_point::go()                          backtracks to the point
//	call(string template, list args)               runs a template in place
//	call_with_caller_target(template, args, target)
//	embcall2_multif(cond1, template1, ..., [else]) conditional embedded call
//	try(string template, list args)                runs a template until Up or assert
//	try.try::assert(string cond)                   aborts the enclosing try
//
// Register installs all of them into an engine.Registry.
package modules
