// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

// DefaultAllowedOps returns the standard operator allow-list used for
// dataset generation and as the service default when a request does not
// supply its own. Callers receive a fresh copy; mutating it does not
// affect later calls.
func DefaultAllowedOps() AllowedOps {
	return AllowedOps{
		StageOperators: []string{
			"$match", "$group", "$sort", "$limit", "$skip", "$project",
			"$unwind", "$lookup", "$addFields", "$count", "$bucket",
			"$bucketAuto", "$facet", "$replaceRoot", "$sortByCount",
			"$sample", "$set", "$unset",
		},
		ExpressionOperators: []string{
			"$sum", "$avg", "$min", "$max", "$first", "$last", "$push",
			"$addToSet", "$eq", "$ne", "$gt", "$gte", "$lt", "$lte", "$in",
			"$nin", "$and", "$or", "$not", "$nor", "$exists", "$type",
			"$regex", "$year", "$month", "$dayOfMonth", "$dayOfWeek",
			"$add", "$subtract", "$multiply", "$divide", "$concat",
			"$substr", "$toLower", "$toUpper", "$cond", "$ifNull",
			"$switch", "$size", "$slice", "$filter", "$map",
			"$dateToString", "$toDate",
		},
	}
}
