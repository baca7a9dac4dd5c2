package mcpserver

// SnippetFormatContract describes the document layout and placeholder
// grammar that LLM consumers should follow when adding snippets.
const SnippetFormatContract = `# petpad Snippet Format Contract

Snippets live in TOML documents inside the vault. One document holds an
ordered list of snippets.

## Document layout

` + "```" + `toml
[[Snippets]]
Description = "ping a host"        # OPTIONAL - short human description
Output = ""                        # OPTIONAL - example output
Tag = ["net", "diagnostics"]       # OPTIONAL - list of tags
command = "ping -c <count=3> <host>" # REQUIRED - the command template
` + "```" + `

Lowercase and capitalized key spellings are both accepted
(` + "`" + `snippets` + "`" + ` / ` + "`" + `Snippets` + "`" + `, ` + "`" + `tag` + "`" + ` / ` + "`" + `Tag` + "`" + `, ...). Saved documents are always
rewritten in the layout above with one blank line between snippets.

## Placeholders

Inside ` + "`" + `command` + "`" + `, variable parts are written as ` + "`" + `<name>` + "`" + ` or ` + "`" + `<name=default>` + "`" + `.

1. **Scalar default:** ` + "`" + `<user=root>` + "`" + `. The name is the text before the first ` + "`" + `=` + "`" + `.
2. **List of choices:** ` + "`" + `<env=|_dev_||_staging_||_prod_|>` + "`" + `. Entries are wrapped
   in ` + "`" + `|_` + "`" + ` ... ` + "`" + `_|` + "`" + ` and separated by ` + "`" + `_||_` + "`" + `.
3. **No default:** ` + "`" + `<host>` + "`" + `.
4. **Repeated names:** ` + "`" + `cp <src> <src>.bak` + "`" + `. Only the first occurrence carries
   the default; later occurrences are filled with the same value.
5. Nested angle brackets are not supported.

## Rules

1. **File paths** end with ` + "`" + `.toml` + "`" + `, use forward slashes and are relative to the vault.
2. **Encoding** is UTF-8 with a trailing newline.
3. **Tags** are short lowercase words (e.g. ` + "`" + `git` + "`" + `, ` + "`" + `docker` + "`" + `, ` + "`" + `k8s` + "`" + `).
4. Prefer placeholders over hard-coded hosts, users and paths.

## Example

` + "```" + `toml
[[Snippets]]
Description = "Tail the logs of a pod"
Output = ""
Tag = ["k8s", "logs"]
command = "kubectl logs -f -n <namespace=default> <pod>"

[[Snippets]]
Description = "Deploy a service"
Output = ""
Tag = ["deploy"]
command = "make deploy ENV=<env=|_dev_||_prod_|>"
` + "```" + `
`
