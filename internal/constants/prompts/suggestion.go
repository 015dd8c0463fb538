package prompts

var (
	INTERVIEW_PROMPT = SYS_PROMPT{
		Intent:         "Interview",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: `You are assisting a candidate during a live technical interview.
The user message is a running transcript of the conversation. Find the most
recent question from the interviewer and draft a short, spoken-style answer
the candidate can give right away. Lead with the direct answer, then at most
two supporting points. Keep it under 120 words unless code is required.`,
			},
		},
	}

	CONTEXT_PRIORITY = SYS_PROMPT{
		Intent:         "ContextPriority",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: "\nUse the provided context information to craft responses that reference specific details from the context when appropriate. Prioritize information from the context when answering questions.",
			},
		},
	}

	ELABORATION_PROMPT = SYS_PROMPT{
		Intent:         "Elaboration",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: `Take this concise response: "%s" and expand it into a detailed technical explanation. Provide specific examples, implementation details, or architectural considerations. Keep the response focused and professional, limited to one paragraph with maximum 5 sentences.`,
			},
		},
	}

	ELABORATION_CONTEXT = SYS_PROMPT{
		Intent:         "ElaborationContext",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: "\n\nUse the provided context information to craft a detailed response that references specific details from the context when appropriate.",
			},
		},
	}
)
