// Package skills turns a job description into a ranked list of résumé skills.
//
// The Extractor asks the LLM for a structured extraction, repairs the JSON it
// returns, drops skills without evidence in the job description, removes
// duplicates and caps the flat skill list. Raw LLM responses and finished
// results are both kept in the content-addressed cache, so the same job
// description is sent to the model at most once per cache lifetime.
package skills
