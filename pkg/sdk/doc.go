// Package staffdex provides a Go client for the staffdex employee
// directory search API.
//
// Every request is authenticated with a tenant API key and scoped to
// that key's tenant. Admin-only endpoints (cache clearing, analytics
// stats) require a key provisioned with the admin role.
//
//	client, _ := staffdex.New("https://staffdex.internal", apiKey)
//	resp, err := client.Search(ctx, staffdex.SearchParams{
//	    Query:      "anna engineer",
//	    Department: "Engineering",
//	})
//	for _, hit := range resp.Results {
//	    fmt.Println(hit.Record.FirstName, hit.Rank)
//	}
//
// API failures carry the server's error code and message:
//
//	if errors.Is(err, staffdex.ErrRateLimited) {
//	    // back off and retry
//	}
package staffdex
