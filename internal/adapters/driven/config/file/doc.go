// Package file provides file-based implementations of configuration ports.
//
// ConfigStore persists application settings as TOML at
// ~/.filing-intel/config.toml. Nested tables are flattened into
// dot-notation keys, so [llm] provider = "ollama" is read as
// "llm.provider".
//
// PromptStore serves user-editable LLM prompt templates from
// ~/.filing-intel/prompts/, falling back to embedded defaults when a
// file is missing. Default files are written lazily on first use.
package file
