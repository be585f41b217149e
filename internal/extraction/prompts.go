package extraction

const extractBeliefsPrompt = `You are a belief extraction system. Analyze the following content and extract distinct candidate beliefs the author holds.

For each candidate, determine:
- statement: a clear, concise statement of the belief
- category: one of "preference", "fact", "decision", "constraint"
- confidence: 0.0-1.0, how confidently the content supports this belief
- positive: true if the belief is affirmed, false if it is a negation/retraction of something
- tags: short keywords relevant to the statement
- reasoning: one sentence on why this was extracted

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"statement":"User prefers dark mode","category":"preference","confidence":0.8,"positive":true,"tags":["ui"],"reasoning":"explicit preference statement"}]

If no beliefs can be extracted, respond with an empty array: []

Content:
%s`

const similarityPrompt = `Rate how similar in meaning these two statements are, from 0.0 (unrelated) to 1.0 (equivalent meaning).
Statement A: %s
Statement B: %s

Respond ONLY with a number between 0.0 and 1.0. No explanation.`

const conflictPrompt = `Do these two statements conflict with each other (cannot both be true of the same subject at the same time)?
Statement A (%s): %s
Statement B (%s): %s

Answer only "true" or "false". No explanation.`

const categoryPrompt = `Classify this statement into one of these categories: "preference", "fact", "decision", "constraint".

Statement: %s

Respond ONLY with JSON, no markdown: {"primary":"preference","confidence":0.8}`

const confidencePrompt = `Given the source content and a derived statement, estimate how confidently the statement is supported by the content.

Source content: %s
Statement: %s

Respond ONLY with JSON, no markdown: {"confidence":0.8,"reasoning":"brief reason"}`
