package mcpserver

// ContentFormatContract describes the canonical saved-text content format
// that LLM consumers should follow when creating or updating texts.
const ContentFormatContract = `# Skribent Content Format Contract

Every saved text in Skribent MUST follow this structure.

## Content

The ` + "`content`" + ` field is an HTML **fragment** (no <html>, <head>, or
<body> wrapper). Only these elements survive sanitization:

- Blocks: ` + "`p`" + `, ` + "`h1`" + `–` + "`h6`" + `, ` + "`ul`" + `, ` + "`ol`" + `, ` + "`li`" + `, ` + "`blockquote`" + `, ` + "`pre`" + `, ` + "`table`" + ` (+ ` + "`thead`" + `/` + "`tbody`" + `/` + "`tr`" + `/` + "`td`" + `/` + "`th`" + `)
- Inline: ` + "`strong`" + `, ` + "`em`" + `, ` + "`u`" + `, ` + "`code`" + `, ` + "`br`" + `, ` + "`span`" + ` (only ` + "`font-size`" + ` styles)
- Links: ` + "`a`" + ` with ` + "`href`" + ` (http/https/mailto only), ` + "`target`" + `, ` + "`rel`" + `
- Images: ` + "`img`" + ` with ` + "`src`" + `, ` + "`alt`" + `, ` + "`width`" + `, ` + "`height`" + `

Anything else (scripts, event handlers, unknown attributes) is stripped on
save. Do not rely on it surviving.

## Rules

1. **Title belongs in the ` + "`title`" + ` field**, not as an ` + "`<h1>`" + ` in the
   content. The UI renders the title separately.
2. **Language is Danish** unless the profile says otherwise.
3. **Names** are short, lowercase, human-readable (e.g. ` + "`uldsweatre-guide`" + `).
   They become part of the storage path.
4. **Meta descriptions** are at most ~155 characters and must not contain
   markup.
5. **Blocked words** of the profile must not appear in the content.

## Example

` + "```" + `json
{
  "profile": "Butik A",
  "name": "uldsweatre-guide",
  "title": "Guide til uldsweatre",
  "content": "<p>Uldsweatre holder varmen, selv når vinteren bider.</p><h2>Materialet</h2><p>Merinould er <strong>blødt</strong> og åndbart.</p>"
}
` + "```" + `
`
