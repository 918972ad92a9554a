package mcpserver

// FilenameConvention describes how daily notes are laid out in the vault.
// LLM consumers should read it before creating notes.
const FilenameConvention = `# Daystreams Filename Convention

A stream is a folder of daily notes. Each configured stream has an id, a
display name and a vault-relative folder.

## Daily notes

- One file per day, named ` + "`" + `YYYY-MM-DD.md` + "`" + ` (zero-padded, e.g. ` + "`" + `2024-02-09.md` + "`" + `).
- The file sits **directly** inside the stream folder. Notes in sub-folders
  belong to the stream for the calendar widget but are not daily notes.
- Only real calendar dates count: ` + "`" + `2023-02-29.md` + "`" + ` is not a daily note.
- A stream with an empty folder keeps its notes at the vault root.

## Examples

| Stream folder | Date       | File                         |
|---------------|------------|------------------------------|
| ` + "`" + `Journal` + "`" + `     | 2024-02-10 | ` + "`" + `Journal/2024-02-10.md` + "`" + `      |
| ` + "`" + `Work/log` + "`" + `    | 2024-03-01 | ` + "`" + `Work/log/2024-03-01.md` + "`" + `     |
| (root)        | 2024-12-31 | ` + "`" + `2024-12-31.md` + "`" + `              |

## Content

Notes are plain Markdown. An optional YAML frontmatter block with ` + "`" + `title` + "`" + `
and ` + "`" + `tags` + "`" + ` is used for listings; otherwise the first ` + "`" + `# Heading` + "`" + ` or the
date serves as the title. Inline ` + "`" + `#tags` + "`" + ` are indexed for search.

## Tools

- ` + "`" + `list_streams` + "`" + ` to discover stream ids.
- ` + "`" + `create_daily_note` + "`" + ` never overwrites an existing day.
- ` + "`" + `month_calendar` + "`" + ` marks each day with its note size: ` + "`" + `·` + "`" + ` small (< 1 KiB),
  ` + "`" + `•` + "`" + ` medium (< 5 KiB), ` + "`" + `●` + "`" + ` large.
`
