package mcpserver

// SearchGuide describes how quire queries behave so LLM consumers can form
// effective searches and interpret results.
const SearchGuide = `# Quire Search Guide

Quire stores every PDF of a corpus page by page and ranks pages with BM25.
These rules tell you how to query it effectively.

## Tokenization

- Queries and page text are lowercased, then split on every non-alphanumeric
  character. Only ASCII letters and digits survive: ` + "`" + `CCSDS 131.0-B-5` + "`" + ` becomes
  the tokens ` + "`" + `ccsds` + "`" + `, ` + "`" + `131` + "`" + `, ` + "`" + `0` + "`" + `, ` + "`" + `b` + "`" + `, ` + "`" + `5` + "`" + `.
- There is no stemming and no stop-word removal. Search for the exact words
  you expect on the page.
- Accented characters act as separators, not letters. Prefer plain ASCII terms.

## Ranking

- Results are scored per page with BM25; higher is better.
- Only pages with a positive score are returned, so an empty result list means
  no page shares a scoring term with the query.
- Ties are broken deterministically by filename, then page position, then path.
  Identical corpora always produce identical rankings.

## Results

- ` + "`" + `search_corpus` + "`" + ` returns JSON hits with ` + "`" + `rank` + "`" + `, ` + "`" + `filename` + "`" + `, ` + "`" + `path` + "`" + `,
  ` + "`" + `page_index` + "`" + `, ` + "`" + `score` + "`" + `, and ` + "`" + `snippet` + "`" + `.
- ` + "`" + `page_index` + "`" + ` is zero-based. Pass it unchanged to ` + "`" + `get_page` + "`" + ` together with
  the document id from ` + "`" + `list_documents` + "`" + ` to read the full page text.
- Snippets are a single whitespace-collapsed line, truncated with ` + "`" + `...` + "`" + `; use
  ` + "`" + `get_page` + "`" + ` when you need the complete text.

## Ingestion

- ` + "`" + `run_ingest` + "`" + ` walks the corpus directory recursively and picks up every
  ` + "`" + `.pdf` + "`" + ` file (case-insensitive).
- Files are identified by their absolute path and fingerprinted with SHA-256:
  unchanged files are skipped without re-extraction, changed files have all
  their pages replaced, and new files are extracted page by page.
- A file that fails to parse is counted in ` + "`" + `failed` + "`" + ` and does not stop the run.
`
