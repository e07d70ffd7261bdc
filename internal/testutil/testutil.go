// Package testutil holds helpers shared by pstexplorer tests.
//
// assert.go has small assertion helpers; encoding.go has 8-bit strings in
// the Windows codepages PST files use. Synthetic containers are built with
// the pstfixture subpackage.
package testutil
