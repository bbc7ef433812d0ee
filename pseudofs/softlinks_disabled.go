// +build pseudofs_nosoftlinks

package pseudofs

const softlinksEnabled = false
