//go:build !unix

package runner

import "os/exec"

// configureKill keeps the default behaviour of killing the direct child.
func configureKill(cmd *exec.Cmd) {}
