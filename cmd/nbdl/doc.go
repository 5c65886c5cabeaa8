/*
Nbdl exports a NotebookLM notebook to local files.

Usage:

	nbdl [flags]
	nbdl auth [profile] [flags]

Run without arguments, nbdl lists your notebooks in a table and asks which
one to export, by number or by name (Tab completes titles). The selected
notebook is written to

	<output>/<notebook>_<YYYYMMDD_HHMMSS>/
	    notebook.json
	    notes/<note>.md
	    sources/<source>.md
	    sources/<source>.json
	    artifacts/<audio>.mp3
	    artifacts/<quiz, flashcards or mind map>.json

Ctrl-C or Ctrl-D at the prompt cancels without writing anything.

Flags:

	-o, --output dir     parent directory for exports (default "output")
	    --debug          enable debug logging
	    --config-dir dir configuration directory (default ~/.nlm)

Authentication:

nbdl reads NLM_AUTH_TOKEN and NLM_COOKIES from the environment, falling back
to ~/.nlm/env. "nbdl auth" fills that file from a signed-in browser profile,
or from a curl command piped on standard input.

Settings:

~/.nlm/nbdl.yaml may set output_dir, debug, timeout (e.g. "90s") and
browser_profile. Environment variables override the file and flags override
both.
*/
package main
