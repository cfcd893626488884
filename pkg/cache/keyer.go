package cache

// MeshKeyOpts are the inputs besides the parameters that a routed mesh
// depends on.
type MeshKeyOpts struct {
	ProcessHash string `json:"process"`
	Router      string `json:"router"`
}

// ArtifactKeyOpts identify one rendering of a cell.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// Keyer derives cache keys.
type Keyer interface {
	MeshKey(paramsHash string, opts MeshKeyOpts) string
	ArtifactKey(cellHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes every key component into a prefixed key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// MeshKey returns "mesh:<sha256>".
func (DefaultKeyer) MeshKey(paramsHash string, opts MeshKeyOpts) string {
	return hashKey("mesh", paramsHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(cellHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", cellHash, opts)
}
