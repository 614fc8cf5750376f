// Package domain contains the core entities of the moodboard: boards, the
// items pinned to them and the cluster labels generated for those items. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
