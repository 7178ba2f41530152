// Package odata walks OData-style paginated collections into a single
// ordered, duplicate-free-by-construction slice.
//
// The origin returns collection reads as an envelope with a value array and
// an optional absolute @odata.nextLink URL. CollectAll follows that link
// verbatim, one request at a time, until a page carries none. CollectPaged
// is the flavor for origins without server-driven paging: it requests
// fixed-size windows via $top/$skip and stops on the first short page.
//
// Example usage:
//
//	collector := odata.NewCollector(lmsClient)
//	result := collector.CollectAll(ctx, "/odata/Enrollments?$filter=Active eq true&$count=true")
//	if !result.Complete {
//		// partial data: result.Err holds the terminal failure
//	}
//	enrollments, err := odata.Items[Enrollment](result.Items)
//
// A fetch failure mid-walk aborts the walk and returns the rows accumulated
// so far. The Result's Complete flag and Err field tell the two terminal
// states apart; the item slice alone cannot.
package odata
