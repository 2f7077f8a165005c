package entities

// Manifest holds the values injected into the packaged plugin descriptor
type Manifest struct {
	PluginID        string
	Name            string
	Group           string
	Version         string
	Compatibility   CompatibilityRange
	RequiredPlugins []string
}

// ManifestFromDescriptor derives the manifest values of a descriptor
func ManifestFromDescriptor(d *Descriptor) Manifest {
	return Manifest{
		PluginID:        d.Plugin.ID,
		Name:            d.Plugin.Name,
		Group:           d.Identity.Group,
		Version:         d.Identity.Version,
		Compatibility:   d.Compatibility,
		RequiredPlugins: d.Platform.RequiredPlugins,
	}
}
