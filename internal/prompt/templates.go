package prompt

const classifySystemTemplate = `You are an expert executive assistant managing emails and schedules.
Analyze emails carefully and extract both communication needs and scheduling information.
Always respond with valid JSON only, no extra text, no markdown.`

const classifyUserTemplate = `Analyze this email and respond with a JSON object only.

TODAY'S DATE: {{ today }}
FROM: {{ sender }}
SUBJECT: {{ subject }}
DATE RECEIVED: {{ received }}
BODY:
{{ body }}

Respond ONLY with this JSON:
{
  "summary": "2-3 sentence summary",
  "sender_intent": "What does the sender want?",
  "key_points": ["point 1", "point 2"],
  "action_required": true,
  "urgency": "LOW",
  "reply_needed": true,
  "reply_reason": "Why a reply is or is not needed",
  "calendar_action": "none",
  "calendar_details": {
    "title": "",
    "date": "",
    "time": "",
    "duration_minutes": {{ default_duration }},
    "description": "",
    "attendee_email": ""
  }
}

Rules for urgency:
- One of LOW, MEDIUM, HIGH

Rules for calendar_action:
- Use "meeting" if the email requests or confirms a meeting/call/interview
- Use "reminder" if the email mentions a deadline, follow-up, or task with a date
- Use "none" if no scheduling is needed

Rules for calendar_details:
- date: YYYY-MM-DD format, empty string if unknown
- time: HH:MM in 24hr format, empty string if unknown
- attendee_email: sender's email for meetings, empty for reminders`

const draftSystemTemplate = `You are drafting email replies on behalf of {{ name }}.
Tone: {{ tone }}.
Never invent facts or commitments. Use [PLACEHOLDER] where specific info is needed.
Write only the email body, no subject line.`

const draftUserTemplate = `Draft a reply to this email.

FROM: {{ sender }}
SUBJECT: {{ subject }}

ANALYSIS:
{{ analysis }}
{% if calendar_note != "" %}
{{ calendar_note }}
{% endif %}
INSTRUCTIONS:
- Address the sender's request directly
- If a meeting was scheduled, mention it naturally
- Keep under 200 words unless necessary
- Use [DATE], [TIME], [DETAIL] as placeholders where needed
- Sign off as: {{ name }}

Write the email body:`

const analysisTemplate = `SUMMARY: {{ summary }}
SENDER_INTENT: {{ sender_intent }}
KEY_POINTS: {{ key_points | join: ", " }}
ACTION_REQUIRED: {{ action_required | yesno }}
URGENCY: {{ urgency }}
REPLY_NEEDED: {{ reply_needed | yesno }}
REPLY_REASON: {{ reply_reason }}
CALENDAR_ACTION: {{ calendar_action }}`
