package sqlinline

const QClaimLocalJob = `--sql 13f4f811-a92f-4226-9699-bdf5ae22a48f
with next_job as (
    select id
    from jobs
    where status = 'queued'
      and provider = 'local'
      and terminal_at is null
      and next_retry_at <= now()
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update jobs
    set status = 'processing', attempts = attempts + 1, updated_at = now()
    where id in (select id from next_job)
    returning id, kind, provider, provider_job_id, status, payload, progress,
              attempts, next_retry_at, webhook_url, cached_result_url, result,
              error_message, terminal_at, created_at, updated_at
)
select * from updated;
`

const QReleaseLocalJob = `--sql 7ffb5702-97a7-47ea-85d7-22c579da9f75
update jobs
set status = 'queued', next_retry_at = $2, updated_at = now()
where id = $1 and terminal_at is null;
`
