package prompts

var (
	EXTRACTION_PROMPT = SYS_PROMPT{
		Intent:         "Extraction",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: "Read the following document and extract the key information in a structured format that can be used as context for a conversation:\n\n%s",
			},
		},
	}

	// used when the document rides along as an attachment
	EXTRACTION_ATTACHED = SYS_PROMPT{
		Intent:         "ExtractionAttached",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {Version: 0.1, Content: "Read this document and extract the key information in a structured format that can be used as context for a conversation"},
		},
	}

	SUMMARY_PROMPT = SYS_PROMPT{
		Intent:         "Summary",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {Version: 0.1, Content: "Summarize this document in 3-5 sentences:\n\n%s"},
		},
	}

	SUMMARY_ATTACHED = SYS_PROMPT{
		Intent:         "SummaryAttached",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {Version: 0.1, Content: "Summarize this document in 3-5 sentences"},
		},
	}
)
