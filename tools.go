//go:build tools
// +build tools

// Package tools pins tool dependencies invoked through go generate so that
// go.mod and go.sum stay in sync on a fresh checkout.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
