// Package wbs holds the pure parts of the work breakdown structure: ordinal codes and
// tree assembly. Nothing here touches storage.
package wbs

import "strconv"

// GenerateCode derives a task's code from its parent's code and its sibling ordinal.
// Roots (nil parentCode) get the bare ordinal, children get "<parent>.<ordinal>".
func GenerateCode(parentCode *string, ordinal int) string {
	if parentCode == nil {
		return strconv.Itoa(ordinal)
	}
	return *parentCode + "." + strconv.Itoa(ordinal)
}
