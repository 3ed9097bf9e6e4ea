package testcases

import (
	"reflect"
	"strings"

	"github.com/clapgo/clap-validator/pkg/instance"
	"github.com/clapgo/clap-validator/pkg/pluginlib"
)

// mainCategoryFeatures lists the recognized top-level feature tags a
// well-formed plugin declares at least one of, per §4.9's "descriptor
// consistency and feature hygiene" group.
var mainCategoryFeatures = map[string]bool{
	"instrument":    true,
	"audio-effect":  true,
	"note-effect":   true,
	"analyzer":      true,
	"note-detector": true,
}

func init() {
	registerPluginCase(PluginCase{
		Name:        "descriptor-consistency",
		Description: "the descriptor the factory reports for the plugin id matches the one the instance was created from",
		Run:         testDescriptorConsistency,
	})
	registerPluginCase(PluginCase{
		Name:        "feature-hygiene",
		Description: "the feature list contains a recognized main-category tag and no duplicates",
		Run:         testFeatureHygiene,
	})
}

func testDescriptorConsistency(lib *pluginlib.Library, pluginID string) Status {
	desc, ok := lib.Descriptor(pluginID)
	if !ok {
		return Fail("library has no descriptor for %q", pluginID)
	}

	inst, err := instance.Create(lib, pluginID)
	if err != nil {
		return FromError(err)
	}
	defer inst.Destroy()

	if !reflect.DeepEqual(inst.Descriptor(), desc) {
		return Fail("instance's descriptor does not equal the factory's for %q", pluginID)
	}
	return Pass("")
}

func testFeatureHygiene(lib *pluginlib.Library, pluginID string) Status {
	desc, ok := lib.Descriptor(pluginID)
	if !ok {
		return Fail("library has no descriptor for %q", pluginID)
	}

	seen := make(map[string]bool, len(desc.Features))
	hasMainCategory := false
	for _, f := range desc.Features {
		lower := strings.ToLower(f)
		if seen[lower] {
			return Fail("feature %q is declared more than once", f)
		}
		seen[lower] = true
		if mainCategoryFeatures[lower] {
			hasMainCategory = true
		}
	}

	if !hasMainCategory {
		return Warn("no recognized main-category feature tag found in %v", desc.Features)
	}
	return Pass("")
}
