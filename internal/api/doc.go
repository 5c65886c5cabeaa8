/*
Package api provides a read-only client for the NotebookLM web API.

Basic usage:

	client := api.New(api.Credentials{AuthToken: token, Cookies: cookies})
	defer client.Close()

	notebooks, err := client.ListNotebooks(ctx)

	// Fetch everything attached to a notebook
	notes, err := client.ListNotes(ctx, notebookID)
	sources, err := client.ListSources(ctx, notebookID)
	ft, err := client.SourceFulltext(ctx, notebookID, sources[0].ID)

	// Download a completed audio overview
	err = client.DownloadAudio(ctx, notebookID, artifactID, "overview.mp3")

Payloads are positional JSON arrays; the parsers in this package
tolerate missing trailing fields and treat unknown shapes as absent data
rather than errors.
*/
package api
