// +build !pseudofs_nosoftlinks

package pseudofs

// Softlink traversal is compiled in by default. Building with
// -tags pseudofs_nosoftlinks strips it, in which case Search behaves
// exactly like SearchNoFollow and LinkTarget returns its argument
// untouched.
const softlinksEnabled = true
