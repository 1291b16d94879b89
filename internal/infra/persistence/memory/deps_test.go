package memory

import (
	"strings"
	"testing"

	"atlas/testutil"
)

func TestMemoryStoreDependsOnlyOnDomain(t *testing.T) {
	domainPkg := testutil.ModulePath + "/pkg/domain"
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return strings.HasPrefix(path, testutil.ModulePath+"/") && path != domainPkg
	}, "the memory store is a leaf driver and may import only pkg/domain")
}
