package prompts

var (
	OCR_PROMPT = SYS_PROMPT{
		Intent:         "OCR",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: "Extract all the text visible in this image. Return only the extracted text without any additional commentary.",
			},
		},
	}

	SOLVER_PROMPT = SYS_PROMPT{
		Intent:         "Solver",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: `You are a technical problem solver. Analyze the following text and:
1. If it contains code:
   - Identify any bugs or issues
   - Provide corrected code with EXTREMELY CONCISE explanations
   - Format the code properly with syntax highlighting
2. If it contains system architecture or design:
   - Analyze the design patterns and architecture
   - Suggest improvements or best practices
   - Format the documentation in a clear structure
3. If it contains error messages:
   - Diagnose the root cause
   - Provide step-by-step solutions
   - Include code examples if applicable

Format your response in markdown for better readability.`,
			},
		},
	}

	SOLVER_CONTEXT = SYS_PROMPT{
		Intent:         "SolverContext",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {
				Version: 0.1,
				Content: "\n\n### Context Information:\n%s\n\nUse the provided context information when relevant to provide more accurate and specific solutions.",
			},
		},
	}

	SOLVER_INPUT = SYS_PROMPT{
		Intent:         "SolverInput",
		CurrentVersion: 0.1,
		Items: map[float32]PromptDefinition{
			0.1: {Version: 0.1, Content: "Here's the text to analyze:\n%s"},
		},
	}
)
