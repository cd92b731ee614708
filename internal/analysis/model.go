// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"strings"

	"github.com/pdiddy/arxiv-digest/internal/logger"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// NormalizeModel maps a requested model identifier onto a supported one.
// Unknown identifiers are not an error: they resolve to types.DefaultModel.
func NormalizeModel(requested string) types.ModelID {
	id := types.ModelID(strings.TrimSpace(requested))
	for _, m := range types.SupportedModels {
		if id == m {
			return m
		}
	}
	if requested != "" {
		logger.Log.WithField("requested", requested).Debug("unsupported model, using default")
	}
	return types.DefaultModel
}

// NormalizeDepth maps a requested depth onto a known mode. Anything
// unrecognized is treated as title-only.
func NormalizeDepth(requested string) types.DepthMode {
	switch d := types.DepthMode(strings.ToLower(strings.TrimSpace(requested))); d {
	case types.DepthTitle, types.DepthAbstract, types.DepthRAG:
		return d
	}
	return types.DepthTitle
}
