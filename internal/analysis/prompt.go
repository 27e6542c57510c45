package analysis

import (
	"encoding/json"
	"fmt"
)

// systemPrompt instructs vision models to answer in the shape ParseModelOutput
// expects.
const systemPrompt = `You read images of handwritten or typed mathematics and compute the answers.

The image may contain:
1. Plain expressions such as 2 + 3 * 4. Evaluate with standard operator precedence
   (parentheses, exponents, multiplication and division left to right, addition and
   subtraction left to right). Return [{"expr": "2 + 3 * 4", "result": 14}].
2. Several expressions or equations. Return one object per expression.
3. Variable assignments such as x = 4. Return {"expr": "x", "result": 4, "assign": true}.
4. Equations with unknowns such as x^2 + 2x + 1 = 0. Return one object per unknown,
   for example {"expr": "x", "result": -1}.
5. Word problems or drawings representing a calculation. Return the expression you
   inferred and its result.

Variables already known to the user are given as a JSON object in the message. Substitute
them wherever they appear.

Reply with a JSON array of objects with keys "expr", "result" and, for assignments,
"assign": true. Numbers must be JSON numbers. Do not add prose or markdown.
If the image contains no mathematics, reply with []. If you cannot process the image
at all, reply with {"error": "<short reason>"}.`

// userPrompt renders the variable map sent alongside the image.
func userPrompt(vars map[string]any) (string, error) {
	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to encode variables: %w", err)
	}
	return fmt.Sprintf("Known variables: %s", data), nil
}
