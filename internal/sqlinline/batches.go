package sqlinline

const QInsertBatch = `--sql 7cba2eb2-a5a3-46af-ac4a-31cc093f6fcc
insert into batches (id, job_ids, total_jobs, webhook_url)
values ($1, $2, $3, $4)
returning created_at;
`

const QSelectBatch = `--sql 58168a4b-d0b2-471b-86c6-e1801423870f
select id, job_ids, total_jobs, webhook_url, webhook_sent,
       final_status, completed_jobs, failed_jobs, created_at, completed_at
from batches
where id = $1;
`

// Single-delivery guard: the caller that flips the flag dispatches the webhook.
const QMarkBatchWebhookSent = `--sql 301cd462-486b-40ee-84e9-99175ba6069e
update batches
set webhook_sent = true
where id = $1 and webhook_sent = false;
`

// Stamps the terminal time once and freezes the aggregate with it, so the
// batch keeps reporting the same terminal state after member rows age out.
const QSetBatchCompleted = `--sql e56e1772-518f-4ea6-921c-f2294f6d2897
update batches
set completed_at = now(), final_status = $2, completed_jobs = $3, failed_jobs = $4
where id = $1 and completed_at is null;
`
