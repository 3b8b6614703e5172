// Package sqlinline holds the SQL statements used by the design job store.
// Every statement carries a `--sql <uuid>` marker so failures in logs can be
// traced back to the exact query without shipping the SQL text around.
package sqlinline

const QEnqueueDesignJob = `--sql f6ff803b-c2e5-4fb1-9acb-0c8b79248f4b
insert into design_jobs(
    id,
    status,
    inputs_json,
    angles,
    locale,
    debug_notes,
    error_message
)
values (
    gen_random_uuid(),
    'QUEUED',
    $1::jsonb,
    $2::text[],
    $3::text,
    '',
    ''
)
returning id, created_at;
`

const QClaimDesignJob = `--sql b1ccdd59-a5d0-4af8-80dc-53d735cf4927
with next_job as (
    select id
    from design_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update design_jobs
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_job)
    returning id, inputs_json, angles, locale, created_at
)
select * from claimed;
`

const QFinishDesignJob = `--sql 62825018-ec07-4d58-94e4-bb9b6d96b0b6
update design_jobs
set status = $2,
    debug_notes = $3,
    error_message = $4,
    updated_at = now()
where id = $1::uuid;
`

const QGetDesignJob = `--sql a815a4ee-dcbd-466c-8968-c3fbb5d39ca4
select id, status, inputs_json, angles, locale, debug_notes, error_message, created_at, updated_at
from design_jobs
where id = $1::uuid;
`

const QInsertAngleAsset = `--sql db678b39-8b1b-4145-93b3-22a2b3f4b2a9
insert into angle_assets(
    id,
    job_id,
    position,
    angle,
    storage_key,
    mime,
    size_bytes,
    fail_reason
)
values (
    gen_random_uuid(),
    $1::uuid,
    $2::int,
    $3::text,
    $4::text,
    $5::text,
    $6::bigint,
    $7::text
)
returning id;
`

// QListAngleAssets orders by position, not created_at: assets for one job are
// written in the same transaction and would otherwise tie on timestamp.
const QListAngleAssets = `--sql ba1bbc13-3c0e-460d-87cd-c5c19d5d759f
select id, job_id, angle, storage_key, mime, size_bytes, fail_reason, created_at
from angle_assets
where job_id = $1::uuid
order by position asc;
`
