package tools

import "strings"

// extractorPrompt asks the summarizer for goal-directed evidence as JSON.
const extractorPrompt = `Please process the following webpage content and user goal to extract relevant information:

## **Webpage Content** 
{webpage_content}

## **User Goal**
{goal}

## **Task Guidelines**
1. **Content Scanning for Rationale**: Locate the **specific sections/data** directly related to the user's goal within the webpage content
2. **Key Extraction for Evidence**: Identify and extract the **most relevant information** from the content, you never miss any important information, output the **full original context** of the content as far as possible, it can be more than three paragraphs.
3. **Summary Output for Summary**: Organize into a concise paragraph with logical flow, prioritizing clarity and judge the contribution of the information to the goal.

**Final Output Format using JSON format has "rational", "evidence", "summary" feilds**
`

// ExtractorPrompt fills the extractor template with page content and goal.
func ExtractorPrompt(content, goal string) string {
	return strings.NewReplacer("{webpage_content}", content, "{goal}", goal).Replace(extractorPrompt)
}
