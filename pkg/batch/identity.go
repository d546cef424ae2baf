// Package batch provides the bulk-save engine: it accumulates assets,
// reconciles them against existing server state, and persists them in chunked
// bulk calls while tracking per-asset outcomes.
package batch

import (
	"strings"

	"github.com/metalake/metalake-go/pkg/apierror"
)

// identitySeparator joins the type name and qualified name in the string form
// of an AssetIdentity.
const identitySeparator = "::"

// AssetIdentity is the reconciliation key for an asset: its type name plus
// qualified name. When built case-insensitively the qualified name is folded
// at construction and the original casing is not retained; callers that need
// it back must keep the asset itself.
type AssetIdentity struct {
	TypeName      string
	QualifiedName string
}

// NewAssetIdentity creates an identity, folding the qualified name when
// caseInsensitive is set.
func NewAssetIdentity(typeName, qualifiedName string, caseInsensitive bool) AssetIdentity {
	if caseInsensitive {
		qualifiedName = strings.ToLower(qualifiedName)
	}
	return AssetIdentity{TypeName: typeName, QualifiedName: qualifiedName}
}

// ParseAssetIdentity parses the "{typeName}::{qualifiedName}" form.
func ParseAssetIdentity(s string) (AssetIdentity, error) {
	parts := strings.Split(s, identitySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return AssetIdentity{}, apierror.NewMalformedIdentity(s)
	}
	return AssetIdentity{TypeName: parts[0], QualifiedName: parts[1]}, nil
}

// String returns the "{typeName}::{qualifiedName}" form.
func (i AssetIdentity) String() string {
	return i.TypeName + identitySeparator + i.QualifiedName
}
