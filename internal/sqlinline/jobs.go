package sqlinline

const QInsertJob = `--sql 48dc9013-5df1-4c13-8d60-75c4c7334fa7
insert into jobs (id, kind, provider, status, payload, webhook_url)
values ($1, $2, $3, 'queued', $4, $5)
returning created_at, updated_at;
`

const QSelectJob = `--sql fa0027d8-9a87-4bb0-89dd-1c75826b6442
select id, kind, provider, provider_job_id, status, payload, progress, attempts,
       next_retry_at, webhook_url, cached_result_url, result, error_message,
       terminal_at, created_at, updated_at
from jobs
where id = $1;
`

const QAttachProviderJob = `--sql 39272da3-18d0-493f-8afd-90c15c82a652
update jobs
set provider_job_id = $2, updated_at = now()
where id = $1 and provider_job_id = '';
`

// Fill-once: the first writer wins, later callers read back the stored value.
const QSetCachedResultURL = `--sql dc7aad74-4075-48aa-ad0c-004aeff37fe1
update jobs
set cached_result_url = $2, updated_at = now()
where id = $1 and cached_result_url is null;
`

const QSelectCachedResultURL = `--sql 489968f7-ae8d-470f-8818-3adeb3d98a47
select coalesce(cached_result_url, '') from jobs where id = $1;
`

// Conditional finalization: only the caller whose update hits a non-terminal
// row performs terminal side effects.
const QFinalizeJob = `--sql 41c2a847-0f18-4fa2-bf10-5c90d7e4583c
update jobs
set status = $2,
    result = $3,
    error_message = $4,
    progress = case when $2 = 'completed' then 100 else progress end,
    terminal_at = now(),
    updated_at = now()
where id = $1 and terminal_at is null;
`

const QUpdateJobProgress = `--sql 848674d2-50ed-440f-99b6-50672ccd01ff
update jobs
set progress = $2, updated_at = now()
where id = $1 and terminal_at is null;
`
