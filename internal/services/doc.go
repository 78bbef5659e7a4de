// Package services holds cross-cutting helpers shared by the grouping engine
// and its collaborators: sentinel error markers with a uniform wrapping
// convention, and context keys that carry case, document, step, and request
// identity into logs.
//
// Engine code classifies failures by wrapping them with one of the exported
// sentinels via Wrap; callers then branch with errors.Is instead of string
// matching.
package services
